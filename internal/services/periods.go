package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"cuotas/internal/core"
)

// EnsurePeriods creates the member's missing periods up to the horizon and
// returns how many were created. Calling it again creates nothing.
func (s *Service) EnsurePeriods(ctx context.Context, sess core.Session, memberID string) (int, error) {
	if err := requireSession(sess); err != nil {
		return 0, err
	}
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return 0, core.Remote("get member", err)
	}
	before, err := s.store.ListPeriods(ctx, m.ID)
	if err != nil {
		return 0, core.Remote("list periods", err)
	}
	after, err := s.ensureMember(ctx, m, s.today())
	if err != nil {
		return 0, err
	}
	return len(after) - len(before), nil
}

// EnsureAllPeriods runs EnsurePeriods for every active member. Failures for
// one member do not stop the others.
func (s *Service) EnsureAllPeriods(ctx context.Context, sess core.Session) (int, error) {
	if err := requireSession(sess); err != nil {
		return 0, err
	}
	return s.ensureAll(ctx, s.today())
}

func (s *Service) ensureAll(ctx context.Context, today core.Date) (int, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return 0, core.Remote("list members", err)
	}
	expected := s.expected(members)

	var errs []error
	created := 0
	for _, m := range members {
		n, err := s.ensureWith(ctx, m, today, expected)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to ensure periods",
				"member_id", m.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("member %s: %w", m.ID, err))
			continue
		}
		created += n
	}
	return created, errors.Join(errs...)
}

// ensureMember generates missing periods for m and returns its full calendar.
func (s *Service) ensureMember(ctx context.Context, m core.Member, today core.Date) ([]core.Period, error) {
	if !m.Active {
		periods, err := s.store.ListPeriods(ctx, m.ID)
		return periods, core.Remote("list periods", err)
	}
	expected, err := s.expectedNow(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ensureWith(ctx, m, today, expected); err != nil {
		return nil, err
	}
	periods, err := s.store.ListPeriods(ctx, m.ID)
	if err != nil {
		return nil, core.Remote("list periods", err)
	}
	return periods, nil
}

func (s *Service) ensureWith(ctx context.Context, m core.Member, today core.Date, expected core.Money) (int, error) {
	if !m.Active {
		return 0, nil
	}
	existing, err := s.store.ListPeriods(ctx, m.ID)
	if err != nil {
		return 0, core.Remote("list periods", err)
	}
	calendar := GeneratePeriods(m.ID, m.EnrollmentDate, s.horizonFrom(today), today, expected)
	missing := MissingPeriods(calendar, existing)
	if len(missing) == 0 {
		return 0, nil
	}
	n, err := s.store.InsertPeriods(ctx, missing)
	if err != nil {
		return 0, core.Remote("insert periods", err)
	}
	slog.InfoContext(ctx, "Periods generated",
		"member_id", m.ID,
		"created", n,
		"first", missing[0].Key,
		"last", missing[len(missing)-1].Key)
	return n, nil
}

// ListPeriods returns the member's calendar with statuses refreshed as of
// today. Changed statuses are written back to the store.
func (s *Service) ListPeriods(ctx context.Context, sess core.Session, memberID string) ([]core.Period, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, core.Remote("get member", err)
	}
	today := s.today()
	periods, err := s.ensureMember(ctx, m, today)
	if err != nil {
		return nil, err
	}
	s.refreshStatuses(ctx, periods, today)
	return periods, nil
}

// ListAllPeriods returns every period of every member, ordered by due date
// and member name.
func (s *Service) ListAllPeriods(ctx context.Context, sess core.Session) ([]core.PeriodRow, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, core.Remote("list members", err)
	}
	periods, err := s.store.ListAllPeriods(ctx)
	if err != nil {
		return nil, core.Remote("list periods", err)
	}
	s.refreshStatuses(ctx, periods, s.today())

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	rows := make([]core.PeriodRow, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, core.PeriodRow{Period: p, MemberName: names[p.MemberID]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].DueDate.Before(rows[j].DueDate)
		}
		return rows[i].MemberName < rows[j].MemberName
	})
	return rows, nil
}

// DeletePeriod removes one period and its contribution rows. A deleted
// period inside the horizon is generated again, unpaid, on the next read.
func (s *Service) DeletePeriod(ctx context.Context, sess core.Session, memberID, key string) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	periods, err := s.store.ListPeriods(ctx, memberID)
	if err != nil {
		return core.Remote("list periods", err)
	}
	if _, ok := findPeriod(periods, key); !ok {
		return core.NotFound("period", key)
	}
	all, err := s.store.ListContributions(ctx, memberID)
	if err != nil {
		return core.Remote("list contributions", err)
	}
	var removed []core.Contribution
	for _, c := range all {
		if c.PeriodKey == key {
			removed = append(removed, c)
		}
	}
	if err := s.store.DeletePeriod(ctx, memberID, key); err != nil {
		return core.Remote("delete period", err)
	}
	slog.InfoContext(ctx, "Period deleted",
		"member_id", memberID,
		"period", key,
		"contributions_removed", len(removed))

	s.publishContributions(ctx, core.ActionDeleted, removed)
	return nil
}

// refreshStatuses recomputes cached statuses in place. A failed write-back
// is logged; the returned periods already carry the fresh status.
func (s *Service) refreshStatuses(ctx context.Context, periods []core.Period, today core.Date) int {
	var changed []core.Period
	for i := range periods {
		if periods[i].Refresh(today) {
			changed = append(changed, periods[i])
		}
	}
	if len(changed) == 0 {
		return 0
	}
	if err := s.store.UpdatePeriodStatuses(ctx, changed); err != nil {
		slog.ErrorContext(ctx, "Failed to update cached period statuses",
			"count", len(changed),
			"error", err)
		return 0
	}
	return len(changed)
}

func findPeriod(periods []core.Period, key string) (core.Period, bool) {
	for _, p := range periods {
		if p.Key == key {
			return p, true
		}
	}
	return core.Period{}, false
}
