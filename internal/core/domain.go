package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "consulta"
)

const (
	StatusPaid       PeriodStatus = "Pagado"
	StatusIncomplete PeriodStatus = "Incompleto"
	StatusPending    PeriodStatus = "Pendiente"
	StatusFuture     PeriodStatus = "Futuro"
)

const (
	KindOnTime ContributionKind = "on-time"
	KindEarly  ContributionKind = "early"
)

// Actions carried by ledger events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const dateLayout = "2006-01-02"

type (
	Role             string
	PeriodStatus     string
	ContributionKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Member is a person who owes dues for every period since enrollment.
	Member struct {
		ID             string
		Name           string
		Email          string
		Role           Role
		Active         bool
		BirthDate      Date
		EnrollmentDate Date
	}

	// Period is one bi-weekly obligation of a member. Status is a cache of
	// ComputeStatus and must be refreshed before display.
	Period struct {
		ID       string
		MemberID string
		Key      string // {year}-Q{ordinal}
		DueDate  Date
		Expected Money
		Paid     Money
		Status   PeriodStatus
	}

	// Contribution is the immutable record of an amount applied to one period.
	Contribution struct {
		ID        string
		MemberID  string
		PeriodKey string
		BatchID   string // groups the rows produced by one allocation
		Amount    Money
		At        time.Time
		Kind      ContributionKind
	}

	Expense struct {
		ID      string
		Date    Date
		Concept string
		Amount  Money
		Note    string
	}

	// User is an identity that can sign in.
	User struct {
		ID           string
		Email        string
		PasswordHash string
		Role         Role
	}

	// Session is the signed-in view state passed to every service operation.
	Session struct {
		UserID string
		Email  string
		Role   Role
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", fmt.Sprintf("invalid date %q", s))
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths returns the date n months later, normalized like time.AddDate.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// IsEndOfMonth reports whether d is the last day of its month.
func (d Date) IsEndOfMonth() bool {
	return d.Equal(d.EndOfMonth())
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// ParseRole maps a stored role string, defaulting to read-only access.
func ParseRole(s string) Role {
	if Role(strings.ToLower(strings.TrimSpace(s))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleViewer
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// RequireAdmin returns ErrForbidden unless the session belongs to an admin.
func (s Session) RequireAdmin() error {
	if s.UserID == "" {
		return ErrUnauthenticated
	}
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return Invalid("name", "name is required")
	}
	if len(m.Name) > 100 {
		return Invalid("name", "name too long (max 100 characters)")
	}
	if !strings.Contains(m.Email, "@") {
		return Invalid("email", "a valid email is required")
	}
	if !m.Role.Valid() {
		return Invalid("role", fmt.Sprintf("unknown role %q", m.Role))
	}
	if m.BirthDate.IsZero() {
		return Invalid("birth_date", "birth date is required")
	}
	if m.EnrollmentDate.IsZero() {
		return Invalid("enrollment_date", "enrollment date is required")
	}
	if m.EnrollmentDate.Before(m.BirthDate) {
		return Invalid("enrollment_date", "enrollment date is before birth date")
	}
	return nil
}

// Remaining returns what is still owed on the period.
func (p Period) Remaining() Money {
	if p.Paid.Cents >= p.Expected.Cents {
		return Money{}
	}
	return Money{Cents: p.Expected.Cents - p.Paid.Cents}
}

// Refresh recomputes the cached status and reports whether it changed.
func (p *Period) Refresh(today Date) bool {
	s := ComputeStatus(p.DueDate, p.Paid, p.Expected, today)
	if s == p.Status {
		return false
	}
	p.Status = s
	return true
}

func (c Contribution) Validate() error {
	if c.MemberID == "" {
		return Invalid("member_id", "member is required")
	}
	if c.PeriodKey == "" {
		return Invalid("period", "period is required")
	}
	return c.Amount.Validate()
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Concept) == "" {
		return Invalid("concept", "concept is required")
	}
	if len(e.Concept) > 200 {
		return Invalid("concept", "concept too long (max 200 characters)")
	}
	if len(e.Note) > 500 {
		return Invalid("note", "note too long (max 500 characters)")
	}
	return e.Amount.Validate()
}
