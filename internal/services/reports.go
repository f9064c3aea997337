package services

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"cuotas/internal/core"
)

// DefaultBirthdays is how many upcoming birthdays the dashboard lists.
const DefaultBirthdays = 5

// Statement returns the member's account statement as of today.
func (s *Service) Statement(ctx context.Context, sess core.Session, memberID string) (core.Statement, error) {
	m, err := s.GetMember(ctx, sess, memberID)
	if err != nil {
		return core.Statement{}, err
	}
	periods, err := s.ListPeriods(ctx, sess, memberID)
	if err != nil {
		return core.Statement{}, err
	}

	st := core.Statement{Member: m, AsOf: s.today(), Periods: periods}
	for _, p := range periods {
		st.Counts.Add(p.Status)
		st.TotalPaid = st.TotalPaid.Add(p.Paid)
		if p.Status == core.StatusPending || p.Status == core.StatusIncomplete {
			st.Outstanding = st.Outstanding.Add(p.Remaining())
		}
	}
	return st, nil
}

// Dashboard returns the group's income, expenses, balance, status counts and
// upcoming birthdays.
func (s *Service) Dashboard(ctx context.Context, sess core.Session) (core.Dashboard, error) {
	if err := requireSession(sess); err != nil {
		return core.Dashboard{}, err
	}

	var (
		members  []core.Member
		periods  []core.Period
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.store.ListMembers(gctx)
		return core.Remote("list members", err)
	})
	g.Go(func() error {
		var err error
		periods, err = s.store.ListAllPeriods(gctx)
		return core.Remote("list periods", err)
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(gctx)
		return core.Remote("list expenses", err)
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}

	today := s.today()
	s.refreshStatuses(ctx, periods, today)

	d := core.Dashboard{AsOf: today, Members: len(members)}
	for _, m := range members {
		if m.Active {
			d.ActiveMembers++
		}
	}
	for _, p := range periods {
		d.Income = d.Income.Add(p.Paid)
		d.Counts.Add(p.Status)
	}
	for _, e := range expenses {
		d.Expenses = d.Expenses.Add(e.Amount)
	}
	d.Balance = d.Income.Sub(d.Expenses)
	d.Birthdays = NextBirthdays(members, today, DefaultBirthdays)
	return d, nil
}

// UpcomingBirthdays returns the next n member birthdays from today.
func (s *Service) UpcomingBirthdays(ctx context.Context, sess core.Session, n int) ([]core.Birthday, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, core.Remote("list members", err)
	}
	if n <= 0 {
		n = DefaultBirthdays
	}
	return NextBirthdays(members, s.today(), n), nil
}

// NextBirthdays computes the next occurrence of each member's birthday on or
// after today and returns the first n, soonest first. A 29 February birthday
// falls on 1 March in common years.
func NextBirthdays(members []core.Member, today core.Date, n int) []core.Birthday {
	out := make([]core.Birthday, 0, len(members))
	for _, m := range members {
		if m.BirthDate.IsZero() {
			continue
		}
		next := birthdayIn(m.BirthDate, today.Year())
		if next.Before(today) {
			next = birthdayIn(m.BirthDate, today.Year()+1)
		}
		out = append(out, core.Birthday{
			MemberID:  m.ID,
			Name:      m.Name,
			Date:      next,
			Age:       next.Year() - m.BirthDate.Year(),
			DaysUntil: int(next.Sub(today.Time).Hours() / 24),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func birthdayIn(birth core.Date, year int) core.Date {
	return core.NewDate(year, birth.Month(), birth.Day())
}
