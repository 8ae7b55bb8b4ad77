package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/session"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	login_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);
`

// SessionStore is the production session.Store: sessions survive a server
// restart because they live in the same sqlite file as everything else.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (r *SessionStore) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (r *SessionStore) Create(ctx context.Context, s *session.Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (token, user_id, username, email, role, first_name, last_name, login_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Token,
		s.UserID,
		s.Username,
		s.Email,
		string(s.Role),
		s.FirstName,
		s.LastName,
		s.LoginAt,
		s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionStore) Get(ctx context.Context, token string) (*session.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT token, user_id, username, email, role, first_name, last_name, login_at, expires_at
FROM sessions
WHERE token = ?`,
		token,
	)

	var (
		s    session.Session
		role string
	)
	if err := row.Scan(
		&s.Token,
		&s.UserID,
		&s.Username,
		&s.Email,
		&role,
		&s.FirstName,
		&s.LastName,
		&s.LoginAt,
		&s.ExpiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.Role = domain.Role(role)

	if s.Expired() {
		if err := r.Delete(ctx, token); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &s, nil
}

func (r *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionStore) PurgeExpired(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return int(n), nil
}

var _ session.Store = (*SessionStore)(nil)
