package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cuotas/internal/cache"
	"cuotas/internal/core"
)

const (
	DefaultSessionTTL  = 12 * time.Hour
	DefaultSessionSize = 1000
)

// SessionManager maps opaque tokens to sessions. Each lookup renews the
// token's lifetime; the oldest sessions are dropped when the cache is full.
type SessionManager struct {
	sessions *cache.LRUCache[core.Session]
}

func NewSessionManager(size int, ttl time.Duration) *SessionManager {
	if size <= 0 {
		size = DefaultSessionSize
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{sessions: cache.NewLRUCache[core.Session](size, ttl)}
}

// Create stores the session and returns its token.
func (m *SessionManager) Create(sess core.Session) string {
	token := uuid.NewString()
	m.sessions.Set(token, sess)
	return token
}

func (m *SessionManager) Lookup(token string) (core.Session, bool) {
	if token == "" {
		return core.Session{}, false
	}
	sess, ok := m.sessions.Get(token)
	if ok {
		m.sessions.Touch(token)
	}
	return sess, ok
}

func (m *SessionManager) Revoke(token string) {
	m.sessions.Delete(token)
}

// RevokeUser signs the user out everywhere and returns how many sessions ended.
func (m *SessionManager) RevokeUser(userID string) int {
	return m.sessions.DeleteFunc(func(s core.Session) bool { return s.UserID == userID })
}

// Cleaner exposes the token cache to a cache.Manager sweep.
func (m *SessionManager) Cleaner() cache.Cleaner {
	return m.sessions
}

type sessionKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess core.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session in ctx, or the zero (anonymous) session.
func SessionFrom(ctx context.Context) core.Session {
	sess, _ := ctx.Value(sessionKey{}).(core.Session)
	return sess
}
