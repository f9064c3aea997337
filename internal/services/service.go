package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cuotas/internal/core"
)

const (
	DefaultHorizonMonths     = 1
	DefaultMaxPrepaidPeriods = 24
)

// DefaultFee is the amount owed per period when none is configured.
var DefaultFee = core.Money{Cents: 3000}

// Options tune the service. Zero values fall back to the defaults.
type Options struct {
	Fee               core.Money
	Policy            FeePolicy
	HorizonMonths     int
	MaxPrepaidPeriods int
	Now               func() time.Time
}

// Service orchestrates members, periods, contributions and expenses across
// the store and the event publisher. Every operation takes the caller's
// session explicitly; writes require the admin role.
type Service struct {
	store      Store
	events     EventPublisher
	fee        core.Money
	policy     FeePolicy
	horizon    int
	maxPrepaid int
	now        func() time.Time
}

func NewService(store Store, events EventPublisher, opts Options) *Service {
	s := &Service{
		store:      store,
		events:     events,
		fee:        opts.Fee,
		policy:     opts.Policy,
		horizon:    opts.HorizonMonths,
		maxPrepaid: opts.MaxPrepaidPeriods,
		now:        opts.Now,
	}
	if s.fee.Cents <= 0 {
		s.fee = DefaultFee
	}
	if s.policy == nil {
		s.policy = FlatFee{}
	}
	if s.horizon <= 0 {
		s.horizon = DefaultHorizonMonths
	}
	if s.maxPrepaid <= 0 {
		s.maxPrepaid = DefaultMaxPrepaidPeriods
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) today() core.Date {
	return core.DateOf(s.now())
}

func (s *Service) horizonFrom(today core.Date) core.Date {
	return today.AddMonths(s.horizon)
}

// expected returns the amount owed per period given the current roster.
func (s *Service) expected(members []core.Member) core.Money {
	active := 0
	for _, m := range members {
		if m.Active {
			active++
		}
	}
	return s.policy.Expected(s.fee, active)
}

func (s *Service) expectedNow(ctx context.Context) (core.Money, error) {
	if _, ok := s.policy.(FlatFee); ok {
		return s.fee, nil
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return core.Money{}, core.Remote("list members", err)
	}
	return s.expected(members), nil
}

func requireSession(sess core.Session) error {
	if sess.UserID == "" {
		return core.ErrUnauthenticated
	}
	return nil
}

func (s *Service) publishContributions(ctx context.Context, action string, cs []core.Contribution) {
	if len(cs) == 0 {
		return
	}
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping contribution events")
		return
	}
	for _, c := range cs {
		if err := s.events.PublishContribution(ctx, action, c); err != nil {
			// The store change stands; only the mirror falls behind.
			slog.ErrorContext(ctx, "Failed to publish contribution event",
				"contribution_id", c.ID,
				"action", action,
				"member_id", c.MemberID,
				"error", err)
		}
	}
}

func (s *Service) publishExpense(ctx context.Context, action string, e core.Expense) {
	if s.events == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping expense event")
		return
	}
	if err := s.events.PublishExpense(ctx, action, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", e.ID,
			"action", action,
			"error", err)
	}
}

// Close closes the store and, when it holds a connection, the publisher.
func (s *Service) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if c, ok := s.events.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close service: %v", errs)
	}

	return nil
}
