package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cuotas/internal/core"
)

func scanUser(s scanner) (core.User, error) {
	var (
		u    core.User
		role string
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &role); err != nil {
		return core.User{}, err
	}
	u.Role = core.ParseRole(role)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, notFound(err, "user", id)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role FROM users WHERE email = ?`, email))
	if err != nil {
		return core.User{}, notFound(err, "user", email)
	}
	return u, nil
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role`,
		u.ID, u.Email, u.PasswordHash, string(u.Role))
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return r.GetUserByEmail(ctx, u.Email)
}
