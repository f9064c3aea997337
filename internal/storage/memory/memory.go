// Package memory provides an in-process store for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

type periodKey struct {
	member string
	key    string
}

type Store struct {
	mu            sync.Mutex
	members       map[string]core.Member
	periods       map[periodKey]core.Period
	contributions []core.Contribution
	expenses      map[string]core.Expense
	users         map[string]core.User
}

func New() *Store {
	return &Store{
		members:  map[string]core.Member{},
		periods:  map[periodKey]core.Period{},
		expenses: map[string]core.Expense{},
		users:    map[string]core.User{},
	}
}

// NewFromFile seeds members from a file with one
// "name;email;birth;enrollment" line per member. Blank lines and lines
// starting with # are skipped, as are malformed lines.
func NewFromFile(path string) *Store {
	s := New()
	for _, line := range readLines(path) {
		parts := strings.Split(line, ";")
		if len(parts) != 4 {
			continue
		}
		birth, err1 := core.ParseDate(parts[2])
		enrolled, err2 := core.ParseDate(parts[3])
		if err1 != nil || err2 != nil {
			continue
		}
		m := core.Member{
			Name:           strings.TrimSpace(parts[0]),
			Email:          strings.TrimSpace(parts[1]),
			Role:           core.RoleViewer,
			Active:         true,
			BirthDate:      birth,
			EnrollmentDate: enrolled,
		}
		if m.Validate() != nil {
			continue
		}
		_, _ = s.CreateMember(context.Background(), m)
	}
	return s
}

func (s *Store) ListMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, core.NotFound("member", id)
	}
	return m, nil
}

func (s *Store) CreateMember(_ context.Context, m core.Member) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.members[m.ID] = m
	return m, nil
}

func (s *Store) UpdateMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return core.NotFound("member", m.ID)
	}
	s.members[m.ID] = m
	return nil
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return core.NotFound("member", id)
	}
	delete(s.members, id)
	for k := range s.periods {
		if k.member == id {
			delete(s.periods, k)
		}
	}
	kept := s.contributions[:0]
	for _, c := range s.contributions {
		if c.MemberID != id {
			kept = append(kept, c)
		}
	}
	s.contributions = kept
	return nil
}

func (s *Store) ListPeriods(_ context.Context, memberID string) ([]core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Period
	for k, p := range s.periods {
		if k.member == memberID {
			out = append(out, p)
		}
	}
	sortPeriods(out)
	return out, nil
}

func (s *Store) ListAllPeriods(_ context.Context) ([]core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Period, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p)
	}
	sortPeriods(out)
	return out, nil
}

func (s *Store) InsertPeriods(_ context.Context, periods []core.Period) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPeriodsLocked(periods), nil
}

func (s *Store) insertPeriodsLocked(periods []core.Period) int {
	n := 0
	for _, p := range periods {
		k := periodKey{p.MemberID, p.Key}
		if _, ok := s.periods[k]; ok {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.periods[k] = p
		n++
	}
	return n
}

func (s *Store) UpdatePeriodStatuses(_ context.Context, periods []core.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range periods {
		k := periodKey{p.MemberID, p.Key}
		cur, ok := s.periods[k]
		if !ok {
			continue
		}
		cur.Status = p.Status
		s.periods[k] = cur
	}
	return nil
}

func (s *Store) DeletePeriod(_ context.Context, memberID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := periodKey{memberID, key}
	if _, ok := s.periods[k]; !ok {
		return core.NotFound("period", key)
	}
	delete(s.periods, k)
	kept := s.contributions[:0]
	for _, c := range s.contributions {
		if c.MemberID != memberID || c.PeriodKey != key {
			kept = append(kept, c)
		}
	}
	s.contributions = kept
	return nil
}

func (s *Store) ListContributions(_ context.Context, memberID string) ([]core.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Contribution
	for _, c := range s.contributions {
		if c.MemberID == memberID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ApplyAllocation validates the whole batch before changing anything.
func (s *Store) ApplyAllocation(_ context.Context, a core.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := map[periodKey]bool{}
	for _, p := range a.NewPeriods {
		pending[periodKey{p.MemberID, p.Key}] = true
	}
	for _, p := range a.Updates {
		k := periodKey{p.MemberID, p.Key}
		cur, ok := s.periods[k]
		if !ok && !pending[k] {
			return core.NotFound("period", p.Key)
		}
		if cur.Paid != a.PriorPaid[p.Key] {
			return core.StalePeriod(p.Key)
		}
	}
	for _, c := range a.Contributions {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	s.insertPeriodsLocked(a.NewPeriods)
	for _, p := range a.Updates {
		k := periodKey{p.MemberID, p.Key}
		cur := s.periods[k]
		cur.Paid = p.Paid
		cur.Status = p.Status
		s.periods[k] = cur
	}
	for _, c := range a.Contributions {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.contributions = append(s.contributions, c)
	}
	return nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.NotFound("expense", id)
	}
	return e, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return core.NotFound("expense", e.ID)
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.NotFound("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.NotFound("user", id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return core.User{}, core.NotFound("user", email)
	}
	return u, nil
}

func (s *Store) UpsertUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if cur, ok := s.users[u.Email]; ok {
		u.ID = cur.ID
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.Email] = u
	return u, nil
}

func (s *Store) Close() error { return nil }

// String reports the store's size for logs.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("memory(members=%d periods=%d expenses=%d)", len(s.members), len(s.periods), len(s.expenses))
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func sortPeriods(ps []core.Period) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].DueDate.Equal(ps[j].DueDate) {
			return ps[i].DueDate.Before(ps[j].DueDate)
		}
		return ps[i].MemberID < ps[j].MemberID
	})
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
