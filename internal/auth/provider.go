// Package auth signs users in with email and password and keeps their
// sessions in memory.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"cuotas/internal/core"
)

const MinPasswordLength = 8

// UserStore is the subset of the store the provider needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpsertUser(ctx context.Context, u core.User) (core.User, error)
}

// LocalProvider verifies credentials against bcrypt hashes in the user store.
type LocalProvider struct {
	users UserStore
	cost  int
}

func NewLocalProvider(users UserStore) *LocalProvider {
	return &LocalProvider{users: users, cost: bcrypt.DefaultCost}
}

// Authenticate returns the session for valid credentials. Unknown emails and
// wrong passwords fail the same way.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (core.Session, error) {
	email = normalizeEmail(email)
	u, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return core.Session{}, core.Remote("get user", err)
		}
		// spend comparable time on unknown emails
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		slog.WarnContext(ctx, "Sign-in for unknown email", "email", email)
		return core.Session{}, core.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Sign-in with wrong password", "email", email)
		return core.Session{}, core.ErrUnauthenticated
	}
	return core.Session{UserID: u.ID, Email: u.Email, Role: core.ParseRole(string(u.Role))}, nil
}

// SetPassword creates the user or replaces its password and role.
func (p *LocalProvider) SetPassword(ctx context.Context, email, password string, role core.Role) (core.User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return core.User{}, core.Invalid("email", "valid email is required")
	}
	hash, err := p.hash(password)
	if err != nil {
		return core.User{}, err
	}
	if !role.Valid() {
		role = core.RoleViewer
	}
	u, err := p.users.UpsertUser(ctx, core.User{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return core.User{}, core.Remote("upsert user", err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin when it does not exist yet. An
// existing account keeps its password.
func (p *LocalProvider) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	_, err := p.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Remote("get user", err)
	}
	if _, err := p.SetPassword(ctx, email, password, core.RoleAdmin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	slog.InfoContext(ctx, "Bootstrap admin created", "email", normalizeEmail(email))
	return nil
}

func (p *LocalProvider) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", core.Invalid("password", fmt.Sprintf("password must have at least %d characters", MinPasswordLength))
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", core.Invalid("password", err.Error())
	}
	return string(b), nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("cuotas-placeholder"), bcrypt.MinCost)
