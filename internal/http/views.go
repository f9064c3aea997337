package http

import (
	"time"

	"cuotas/internal/core"
)

type memberView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Active         bool   `json:"active"`
	BirthDate      string `json:"birth_date"`
	EnrollmentDate string `json:"enrollment_date"`
}

func newMemberView(m core.Member) memberView {
	return memberView{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		Role:           string(m.Role),
		Active:         m.Active,
		BirthDate:      m.BirthDate.String(),
		EnrollmentDate: m.EnrollmentDate.String(),
	}
}

type periodView struct {
	MemberID       string `json:"member_id"`
	MemberName     string `json:"member_name,omitempty"`
	Key            string `json:"key"`
	DueDate        string `json:"due_date"`
	ExpectedCents  int64  `json:"expected_cents"`
	PaidCents      int64  `json:"paid_cents"`
	RemainingCents int64  `json:"remaining_cents"`
	Status         string `json:"status"`
}

func newPeriodView(p core.Period) periodView {
	return periodView{
		MemberID:       p.MemberID,
		Key:            p.Key,
		DueDate:        p.DueDate.String(),
		ExpectedCents:  p.Expected.Cents,
		PaidCents:      p.Paid.Cents,
		RemainingCents: p.Remaining().Cents,
		Status:         string(p.Status),
	}
}

func newPeriodViews(ps []core.Period) []periodView {
	out := make([]periodView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPeriodView(p))
	}
	return out
}

type contributionView struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	PeriodKey   string    `json:"period_key"`
	BatchID     string    `json:"batch_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	At          time.Time `json:"at"`
	Kind        string    `json:"kind"`
}

func newContributionView(c core.Contribution) contributionView {
	return contributionView{
		ID:          c.ID,
		MemberID:    c.MemberID,
		PeriodKey:   c.PeriodKey,
		BatchID:     c.BatchID,
		AmountCents: c.Amount.Cents,
		At:          c.At,
		Kind:        string(c.Kind),
	}
}

func newContributionViews(cs []core.Contribution) []contributionView {
	out := make([]contributionView, 0, len(cs))
	for _, c := range cs {
		out = append(out, newContributionView(c))
	}
	return out
}

type allocationView struct {
	MemberID      string             `json:"member_id"`
	BatchID       string             `json:"batch_id"`
	Contributions []contributionView `json:"contributions"`
	Periods       []periodView       `json:"periods"`
	LeftoverCents int64              `json:"leftover_cents"`
}

func newAllocationView(a core.Allocation) allocationView {
	return allocationView{
		MemberID:      a.MemberID,
		BatchID:       a.BatchID,
		Contributions: newContributionViews(a.Contributions),
		Periods:       newPeriodViews(a.Updates),
		LeftoverCents: a.Leftover.Cents,
	}
}

type expenseView struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Concept     string `json:"concept"`
	AmountCents int64  `json:"amount_cents"`
	Note        string `json:"note,omitempty"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Date:        e.Date.String(),
		Concept:     e.Concept,
		AmountCents: e.Amount.Cents,
		Note:        e.Note,
	}
}

type countsView struct {
	Paid       int `json:"pagado"`
	Incomplete int `json:"incompleto"`
	Pending    int `json:"pendiente"`
	Future     int `json:"futuro"`
	Total      int `json:"total"`
}

func newCountsView(c core.StatusCounts) countsView {
	return countsView{
		Paid:       c.Paid,
		Incomplete: c.Incomplete,
		Pending:    c.Pending,
		Future:     c.Future,
		Total:      c.Total(),
	}
}

type statementView struct {
	Member           memberView   `json:"member"`
	AsOf             string       `json:"as_of"`
	Periods          []periodView `json:"periods"`
	Counts           countsView   `json:"counts"`
	TotalPaidCents   int64        `json:"total_paid_cents"`
	OutstandingCents int64        `json:"outstanding_cents"`
}

func newStatementView(st core.Statement) statementView {
	return statementView{
		Member:           newMemberView(st.Member),
		AsOf:             st.AsOf.String(),
		Periods:          newPeriodViews(st.Periods),
		Counts:           newCountsView(st.Counts),
		TotalPaidCents:   st.TotalPaid.Cents,
		OutstandingCents: st.Outstanding.Cents,
	}
}

type birthdayView struct {
	MemberID  string `json:"member_id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	Age       int    `json:"age"`
	DaysUntil int    `json:"days_until"`
}

func newBirthdayViews(bs []core.Birthday) []birthdayView {
	out := make([]birthdayView, 0, len(bs))
	for _, b := range bs {
		out = append(out, birthdayView{
			MemberID:  b.MemberID,
			Name:      b.Name,
			Date:      b.Date.String(),
			Age:       b.Age,
			DaysUntil: b.DaysUntil,
		})
	}
	return out
}

type dashboardView struct {
	AsOf          string         `json:"as_of"`
	Members       int            `json:"members"`
	ActiveMembers int            `json:"active_members"`
	IncomeCents   int64          `json:"income_cents"`
	ExpensesCents int64          `json:"expenses_cents"`
	BalanceCents  int64          `json:"balance_cents"`
	Counts        countsView     `json:"counts"`
	Birthdays     []birthdayView `json:"birthdays"`
}

func newDashboardView(d core.Dashboard) dashboardView {
	return dashboardView{
		AsOf:          d.AsOf.String(),
		Members:       d.Members,
		ActiveMembers: d.ActiveMembers,
		IncomeCents:   d.Income.Cents,
		ExpensesCents: d.Expenses.Cents,
		BalanceCents:  d.Balance.Cents,
		Counts:        newCountsView(d.Counts),
		Birthdays:     newBirthdayViews(d.Birthdays),
	}
}

type sessionView struct {
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
