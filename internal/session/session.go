package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
)

// Session is the server-held snapshot of a logged-in browser, keyed by an
// opaque token delivered in a cookie. A session with UserID 0 means
// "not logged in". The user fields are captured at login and trusted for
// the session's lifetime; role is deliberately a cached value that may go
// stale until the next login.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Email     string
	Role      domain.Role
	FirstName string
	LastName  string
	LoginAt   time.Time
	ExpiresAt time.Time
}

// New snapshots a user into a fresh session with a random opaque token.
func New(user *domain.User, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		LoginAt:   now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session's server-side expiry has passed.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// FullName joins the snapshot's first and last name, falling back to the
// username.
func (s *Session) FullName() string {
	if s.FirstName == "" && s.LastName == "" {
		return s.Username
	}
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Store is the pluggable backing store for sessions: an in-memory map for
// tests and development, sqlite in production.
type Store interface {
	// Create persists the session under its token.
	Create(ctx context.Context, s *Session) error
	// Get returns the session for token, or nil if it is unknown or
	// expired. Expired rows are removed on lookup.
	Get(ctx context.Context, token string) (*Session, error)
	// Delete removes the session for token. Deleting an unknown token is
	// not an error.
	Delete(ctx context.Context, token string) error
	// PurgeExpired removes every expired session and reports how many
	// were dropped.
	PurgeExpired(ctx context.Context) (int, error)
}
