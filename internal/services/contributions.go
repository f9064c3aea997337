package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

// RecordContribution applies amount to the member's oldest outstanding
// periods first. When amount exceeds what is owed, future periods beyond the
// horizon are created as prepayment, up to the configured limit; an amount
// that still does not fit is rejected and nothing is written.
func (s *Service) RecordContribution(ctx context.Context, sess core.Session, memberID string, amount core.Money) (core.Allocation, error) {
	if err := sess.RequireAdmin(); err != nil {
		return core.Allocation{}, err
	}
	if err := amount.Validate(); err != nil {
		return core.Allocation{}, err
	}
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return core.Allocation{}, core.Remote("get member", err)
	}

	now := s.now()
	today := core.DateOf(now)
	periods, err := s.ensureMember(ctx, m, today)
	if err != nil {
		return core.Allocation{}, err
	}

	extra, err := s.prepaidPeriods(ctx, m, periods, amount, today)
	if err != nil {
		return core.Allocation{}, err
	}

	alloc := Allocate(append(periods, extra...), amount, now, today)
	if alloc.Leftover.Cents > 0 {
		return core.Allocation{}, core.Invalid("amount",
			fmt.Sprintf("amount exceeds outstanding balance by %s", alloc.Leftover))
	}
	alloc.MemberID = m.ID
	alloc.BatchID = uuid.NewString()
	alloc.NewPeriods = extra
	stampContributions(&alloc)

	if err := s.store.ApplyAllocation(ctx, alloc); err != nil {
		return core.Allocation{}, core.Remote("apply allocation", err)
	}

	slog.InfoContext(ctx, "Contribution recorded",
		"member_id", m.ID,
		"batch_id", alloc.BatchID,
		"amount_cents", amount.Cents,
		"periods", len(alloc.Updates),
		"prepaid_created", len(extra))

	s.publishContributions(ctx, core.ActionCreated, alloc.Contributions)
	return alloc, nil
}

// prepaidPeriods returns the periods beyond the member's calendar needed to
// absorb amount, or a validation error when the prepayment limit is reached.
func (s *Service) prepaidPeriods(ctx context.Context, m core.Member, periods []core.Period, amount core.Money, today core.Date) ([]core.Period, error) {
	outstanding := Outstanding(periods)
	if amount.Cents <= outstanding.Cents {
		return nil, nil
	}
	if !m.Active {
		return nil, core.Invalid("amount", "amount exceeds outstanding balance of an inactive member")
	}

	expected, err := s.expectedNow(ctx)
	if err != nil {
		return nil, err
	}
	if expected.Cents <= 0 {
		return nil, core.Invalid("amount", "amount exceeds outstanding balance")
	}

	horizon := s.horizonFrom(today)
	beyond := 0
	last := core.Date{}
	for _, p := range periods {
		if p.DueDate.After(horizon) {
			beyond++
		}
		if p.DueDate.After(last) {
			last = p.DueDate
		}
	}
	allowed := s.maxPrepaid - beyond

	var extra []core.Period
	for outstanding.Cents < amount.Cents && len(extra) < allowed {
		var next core.Period
		if last.IsZero() {
			next = newPeriod(m.ID, FirstDueDate(m.EnrollmentDate), today, expected)
		} else {
			next = ExtendPeriods(m.ID, last, today, expected, 1)[0]
		}
		extra = append(extra, next)
		last = next.DueDate
		outstanding = outstanding.Add(next.Expected)
	}
	if outstanding.Cents < amount.Cents {
		return nil, core.Invalid("amount",
			fmt.Sprintf("amount exceeds outstanding balance plus %d prepaid periods", s.maxPrepaid))
	}
	return extra, nil
}

// PayPeriod applies amount to one specific period. Paying a period that is
// already settled, or paying more than its remaining balance, is rejected
// without writing anything.
func (s *Service) PayPeriod(ctx context.Context, sess core.Session, memberID, key string, amount core.Money) (core.Contribution, error) {
	if err := sess.RequireAdmin(); err != nil {
		return core.Contribution{}, err
	}
	if err := amount.Validate(); err != nil {
		return core.Contribution{}, err
	}
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return core.Contribution{}, core.Remote("get member", err)
	}

	now := s.now()
	today := core.DateOf(now)
	periods, err := s.ensureMember(ctx, m, today)
	if err != nil {
		return core.Contribution{}, err
	}
	p, ok := findPeriod(periods, key)
	if !ok {
		return core.Contribution{}, core.NotFound("period", key)
	}
	remaining := p.Remaining()
	if remaining.Cents == 0 {
		return core.Contribution{}, core.Invalid("period",
			fmt.Sprintf("period %s is already paid", key))
	}
	if amount.Cents > remaining.Cents {
		return core.Contribution{}, core.Invalid("amount",
			fmt.Sprintf("amount exceeds remaining balance of %s", remaining))
	}

	alloc := Allocate([]core.Period{p}, amount, now, today)
	alloc.MemberID = m.ID
	alloc.BatchID = uuid.NewString()
	stampContributions(&alloc)

	if err := s.store.ApplyAllocation(ctx, alloc); err != nil {
		return core.Contribution{}, core.Remote("apply allocation", err)
	}

	slog.InfoContext(ctx, "Period payment recorded",
		"member_id", m.ID,
		"period", key,
		"amount_cents", amount.Cents,
		"status", alloc.Updates[0].Status)

	s.publishContributions(ctx, core.ActionCreated, alloc.Contributions)
	return alloc.Contributions[0], nil
}

func stampContributions(a *core.Allocation) {
	for i := range a.Contributions {
		a.Contributions[i].ID = uuid.NewString()
		a.Contributions[i].BatchID = a.BatchID
	}
}

// ListContributions returns the member's contribution rows, oldest first.
func (s *Service) ListContributions(ctx context.Context, sess core.Session, memberID string) ([]core.Contribution, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if _, err := s.store.GetMember(ctx, memberID); err != nil {
		return nil, core.Remote("get member", err)
	}
	cs, err := s.store.ListContributions(ctx, memberID)
	if err != nil {
		return nil, core.Remote("list contributions", err)
	}
	return cs, nil
}
