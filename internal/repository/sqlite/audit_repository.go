package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL DEFAULT 0,
	username TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	at DATETIME NOT NULL
);
`

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAuditTable); err != nil {
		return fmt.Errorf("create audit_log table: %w", err)
	}
	return nil
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditEntry) (int64, error) {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO audit_log (user_id, username, action, ip, user_agent, at)
VALUES (?, ?, ?, ?, ?, ?)`,
		entry.UserID,
		entry.Username,
		entry.Action,
		entry.IP,
		entry.UserAgent,
		entry.At,
	)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("audit last insert id: %w", err)
	}
	entry.ID = id
	return id, nil
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, username, action, ip, user_agent, at
FROM audit_log
ORDER BY at DESC, id DESC
LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.IP, &e.UserAgent, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
