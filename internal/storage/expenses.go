package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

const expenseColumns = `id, date, concept, amount_cents, note`

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := s.Scan(&e.ID, &date, &e.Concept, &e.Amount.Cents, &e.Note); err != nil {
		return core.Expense{}, err
	}
	d, err := parseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s date: %w", e.ID, err)
	}
	e.Date = d
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if err != nil {
		return core.Expense{}, notFound(err, "expense", id)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Concept, e.Amount.Cents, e.Note)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"concept", e.Concept,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, concept = ?, amount_cents = ?, note = ? WHERE id = ?`,
		e.Date.String(), e.Concept, e.Amount.Cents, e.Note, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireOneRow(res, "expense", e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireOneRow(res, "expense", id)
}
