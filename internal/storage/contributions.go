package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

func (r *SQLiteRepository) ListContributions(ctx context.Context, memberID string) ([]core.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, member_id, period_key, batch_id, amount_cents, paid_at, kind
		 FROM contributions WHERE member_id = ? ORDER BY paid_at, rowid`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []core.Contribution
	for rows.Next() {
		var (
			c    core.Contribution
			at   string
			kind string
		)
		if err := rows.Scan(&c.ID, &c.MemberID, &c.PeriodKey, &c.BatchID, &c.Amount.Cents, &at, &kind); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("contribution %s timestamp: %w", c.ID, err)
		}
		c.Kind = core.ContributionKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ApplyAllocation writes new periods, paid amounts and contribution rows in
// one transaction. An update for a period that does not exist aborts it.
func (r *SQLiteRepository) ApplyAllocation(ctx context.Context, a core.Allocation) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := insertPeriods(ctx, tx, a.NewPeriods); err != nil {
			return err
		}

		for _, p := range a.Updates {
			res, err := tx.ExecContext(ctx,
				`UPDATE periods SET paid_cents = ?, status = ?
				 WHERE member_id = ? AND period_key = ? AND paid_cents = ?`,
				p.Paid.Cents, string(p.Status), p.MemberID, p.Key, a.PriorPaid[p.Key].Cents)
			if err != nil {
				return fmt.Errorf("update period %s: %w", p.Key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return stalePeriod(ctx, tx, p)
			}
		}

		for _, c := range a.Contributions {
			if err := c.Validate(); err != nil {
				return err
			}
			id := c.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO contributions (id, member_id, period_key, batch_id, amount_cents, paid_at, kind)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, c.MemberID, c.PeriodKey, c.BatchID, c.Amount.Cents, formatTime(c.At), string(c.Kind))
			if err != nil {
				return fmt.Errorf("insert contribution: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Allocation saved to SQLite",
		"member_id", a.MemberID,
		"batch_id", a.BatchID,
		"periods", len(a.Updates),
		"new_periods", len(a.NewPeriods),
		"applied_cents", a.Applied.Cents)
	return nil
}

// stalePeriod tells a missing period apart from one whose paid amount moved
// since it was read.
func stalePeriod(ctx context.Context, tx *sql.Tx, p core.Period) error {
	var paid int64
	err := tx.QueryRowContext(ctx,
		`SELECT paid_cents FROM periods WHERE member_id = ? AND period_key = ?`,
		p.MemberID, p.Key).Scan(&paid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound("period", p.Key)
	}
	if err != nil {
		return fmt.Errorf("read period %s: %w", p.Key, err)
	}
	return core.StalePeriod(p.Key)
}
