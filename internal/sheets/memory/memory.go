package memory

import (
	"context"
	"fmt"
	"sync"

	"cuotas/internal/core"
	ports "cuotas/internal/sheets"
)

var (
	_ ports.LedgerWriter = (*Store)(nil)
	_ ports.LedgerReader = (*Store)(nil)
)

// Store is an in-process sheet mirror used in development and tests. Rows
// keep insertion order the way a spreadsheet does.
type Store struct {
	mu            sync.Mutex
	contributions []ports.ContributionRow
	expenses      []core.Expense
}

func New() *Store {
	return &Store{}
}

// AppendContribution stores the row unless its ID is already present.
func (s *Store) AppendContribution(_ context.Context, row ports.ContributionRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	if row.ID == "" {
		return "", core.Invalid("id", "contribution id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.contributions {
		if r.ID == row.ID {
			return fmt.Sprintf("mem:abonos:%d", i+1), nil
		}
	}
	s.contributions = append(s.contributions, row)
	return fmt.Sprintf("mem:abonos:%d", len(s.contributions)), nil
}

// DeleteContribution removes the row; a missing row is not an error.
func (s *Store) DeleteContribution(_ context.Context, c core.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.contributions {
		if r.ID == c.ID {
			s.contributions = append(s.contributions[:i], s.contributions[i+1:]...)
			return nil
		}
	}
	return nil
}

// UpsertExpense replaces the row with the same ID or appends a new one.
func (s *Store) UpsertExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		return "", core.Invalid("id", "expense id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.expenses {
		if r.ID == e.ID {
			s.expenses[i] = e
			return fmt.Sprintf("mem:egresos:%d", i+1), nil
		}
	}
	s.expenses = append(s.expenses, e)
	return fmt.Sprintf("mem:egresos:%d", len(s.expenses)), nil
}

// DeleteExpense removes the row; a missing row is not an error.
func (s *Store) DeleteExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.expenses {
		if r.ID == e.ID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ListContributions(_ context.Context, year int) ([]ports.ContributionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.ContributionRow
	for _, r := range s.contributions {
		if r.At.Year() == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, year int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.Date.Year() == year {
			out = append(out, e)
		}
	}
	return out, nil
}
