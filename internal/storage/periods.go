package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

const periodColumns = `id, member_id, period_key, due_date, expected_cents, paid_cents, status`

func scanPeriod(s scanner) (core.Period, error) {
	var (
		p      core.Period
		due    string
		status string
	)
	if err := s.Scan(&p.ID, &p.MemberID, &p.Key, &due, &p.Expected.Cents, &p.Paid.Cents, &status); err != nil {
		return core.Period{}, err
	}
	d, err := parseDate(due)
	if err != nil {
		return core.Period{}, fmt.Errorf("period %s due date: %w", p.ID, err)
	}
	p.DueDate = d
	p.Status = core.PeriodStatus(status)
	return p, nil
}

func (r *SQLiteRepository) queryPeriods(ctx context.Context, query string, args ...any) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var out []core.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context, memberID string) ([]core.Period, error) {
	return r.queryPeriods(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE member_id = ? ORDER BY due_date`, memberID)
}

func (r *SQLiteRepository) ListAllPeriods(ctx context.Context) ([]core.Period, error) {
	return r.queryPeriods(ctx,
		`SELECT `+periodColumns+` FROM periods ORDER BY due_date, member_id`)
}

func (r *SQLiteRepository) InsertPeriods(ctx context.Context, periods []core.Period) (int, error) {
	var n int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = insertPeriods(ctx, tx, periods)
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.DebugContext(ctx, "Periods saved to SQLite", "requested", len(periods), "inserted", n)
	return n, nil
}

// insertPeriods skips periods whose (member, key) already exists.
func insertPeriods(ctx context.Context, tx *sql.Tx, periods []core.Period) (int, error) {
	if len(periods) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO periods (`+periodColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert period: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, p := range periods {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		res, err := stmt.ExecContext(ctx, id, p.MemberID, p.Key, p.DueDate.String(),
			p.Expected.Cents, p.Paid.Cents, string(p.Status))
		if err != nil {
			return 0, fmt.Errorf("insert period %s: %w", p.Key, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}
	return n, nil
}

func (r *SQLiteRepository) UpdatePeriodStatuses(ctx context.Context, periods []core.Period) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE periods SET status = ? WHERE member_id = ? AND period_key = ?`)
		if err != nil {
			return fmt.Errorf("prepare status update: %w", err)
		}
		defer stmt.Close()
		for _, p := range periods {
			if _, err := stmt.ExecContext(ctx, string(p.Status), p.MemberID, p.Key); err != nil {
				return fmt.Errorf("update status of %s: %w", p.Key, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) DeletePeriod(ctx context.Context, memberID, key string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM periods WHERE member_id = ? AND period_key = ?`, memberID, key)
		if err != nil {
			return fmt.Errorf("delete period: %w", err)
		}
		if err := requireOneRow(res, "period", key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contributions WHERE member_id = ? AND period_key = ?`, memberID, key); err != nil {
			return fmt.Errorf("delete contributions: %w", err)
		}
		return nil
	})
}
