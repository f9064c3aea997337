package sheets

import (
	"context"

	"cuotas/internal/core"
)

// ContributionRow is a contribution as it appears on the mirror sheet.
type ContributionRow struct {
	core.Contribution
	MemberName string
}

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors ledger changes to an external spreadsheet. Every
	// method is idempotent on the record ID so redelivered events are safe.
	LedgerWriter interface {
		AppendContribution(ctx context.Context, row ContributionRow) (rowRef string, err error)
		DeleteContribution(ctx context.Context, c core.Contribution) error
		UpsertExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
		DeleteExpense(ctx context.Context, e core.Expense) error
	}

	// LedgerReader returns what the mirror currently holds for a year.
	LedgerReader interface {
		ListContributions(ctx context.Context, year int) ([]ContributionRow, error)
		ListExpenses(ctx context.Context, year int) ([]core.Expense, error)
	}
)
