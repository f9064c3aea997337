package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

const memberColumns = `id, name, email, role, active, birth_date, enrollment_date`

func scanMember(s scanner) (core.Member, error) {
	var (
		m               core.Member
		role            string
		active          int
		birth, enrolled string
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Email, &role, &active, &birth, &enrolled); err != nil {
		return core.Member{}, err
	}
	m.Role = core.ParseRole(role)
	m.Active = active != 0
	var err error
	if m.BirthDate, err = parseDate(birth); err != nil {
		return core.Member{}, fmt.Errorf("member %s birth date: %w", m.ID, err)
	}
	if m.EnrollmentDate, err = parseDate(enrolled); err != nil {
		return core.Member{}, fmt.Errorf("member %s enrollment date: %w", m.ID, err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err != nil {
		return core.Member{}, notFound(err, "member", id)
	}
	return m, nil
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, string(m.Role), boolToInt(m.Active),
		m.BirthDate.String(), m.EnrollmentDate.String())
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}

	slog.InfoContext(ctx, "Member saved to SQLite", "id", m.ID)
	return m, nil
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET name = ?, email = ?, role = ?, active = ?, birth_date = ?, enrollment_date = ?
		 WHERE id = ?`,
		m.Name, m.Email, string(m.Role), boolToInt(m.Active),
		m.BirthDate.String(), m.EnrollmentDate.String(), m.ID)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return requireOneRow(res, "member", m.ID)
}

// DeleteMember removes the member's contributions and periods explicitly so
// the result does not depend on the foreign_keys pragma.
func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM contributions WHERE member_id = ?`, id); err != nil {
			return fmt.Errorf("delete contributions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM periods WHERE member_id = ?`, id); err != nil {
			return fmt.Errorf("delete periods: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		return requireOneRow(res, "member", id)
	})
}
