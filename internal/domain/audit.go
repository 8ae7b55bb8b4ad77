package domain

import "time"

// AuditEntry records a security-relevant action (login, logout,
// registration) together with the client that triggered it. Writes are
// best-effort everywhere in the system.
type AuditEntry struct {
	ID        int64
	UserID    int64
	Username  string
	Action    string
	IP        string
	UserAgent string
	At        time.Time
}
