package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"cuotas/internal/core"
)

// ListExpenses returns every expense, most recent first.
func (s *Service) ListExpenses(ctx context.Context, sess core.Session) ([]core.Expense, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	items, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, core.Remote("list expenses", err)
	}
	sortExpenses(items)
	return items, nil
}

// RecordExpense saves an expense and publishes it to the mirror.
func (s *Service) RecordExpense(ctx context.Context, sess core.Session, e core.Expense) (core.Expense, error) {
	if err := sess.RequireAdmin(); err != nil {
		return core.Expense{}, err
	}
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, core.Remote("save expense", err)
	}
	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", saved.ID,
		"amount_cents", saved.Amount.Cents)
	s.publishExpense(ctx, core.ActionCreated, saved)
	return saved, nil
}

func (s *Service) UpdateExpense(ctx context.Context, sess core.Session, e core.Expense) (core.Expense, error) {
	if err := sess.RequireAdmin(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.store.GetExpense(ctx, e.ID); err != nil {
		return core.Expense{}, core.Remote("get expense", err)
	}
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, core.Remote("update expense", err)
	}
	s.publishExpense(ctx, core.ActionUpdated, e)
	return e, nil
}

func (s *Service) DeleteExpense(ctx context.Context, sess core.Session, id string) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Remote("get expense", err)
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return core.Remote("delete expense", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	s.publishExpense(ctx, core.ActionDeleted, e)
	return nil
}

func normalizeExpense(e core.Expense) core.Expense {
	e.Concept = strings.TrimSpace(e.Concept)
	e.Note = strings.TrimSpace(e.Note)
	return e
}

func sortExpenses(items []core.Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
}
