package services

import (
	"context"

	"cuotas/internal/core"
)

// Ports implemented by the storage backends.
type (
	MemberStore interface {
		ListMembers(ctx context.Context) ([]core.Member, error)
		GetMember(ctx context.Context, id string) (core.Member, error)
		CreateMember(ctx context.Context, m core.Member) (core.Member, error)
		UpdateMember(ctx context.Context, m core.Member) error
		// DeleteMember removes the member with its periods and contributions.
		DeleteMember(ctx context.Context, id string) error
	}

	PeriodStore interface {
		// ListPeriods returns the member's periods ordered by due date.
		ListPeriods(ctx context.Context, memberID string) ([]core.Period, error)
		ListAllPeriods(ctx context.Context) ([]core.Period, error)
		// InsertPeriods stores new periods, skipping any (member, key) that
		// already exists, and returns how many were inserted.
		InsertPeriods(ctx context.Context, periods []core.Period) (int, error)
		// UpdatePeriodStatuses writes only the cached status of each period.
		UpdatePeriodStatuses(ctx context.Context, periods []core.Period) error
		DeletePeriod(ctx context.Context, memberID, key string) error
	}

	ContributionStore interface {
		ListContributions(ctx context.Context, memberID string) ([]core.Contribution, error)
		// ApplyAllocation persists new periods, paid amounts and contribution
		// rows atomically.
		ApplyAllocation(ctx context.Context, a core.Allocation) error
	}

	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id string) error
	}

	UserStore interface {
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		// UpsertUser creates the user or replaces the hash and role of the
		// user with the same email.
		UpsertUser(ctx context.Context, u core.User) (core.User, error)
	}

	Store interface {
		MemberStore
		PeriodStore
		ContributionStore
		ExpenseStore
		UserStore
		Close() error
	}

	// EventPublisher announces ledger changes to downstream consumers.
	EventPublisher interface {
		PublishContribution(ctx context.Context, action string, c core.Contribution) error
		PublishExpense(ctx context.Context, action string, e core.Expense) error
	}
)

