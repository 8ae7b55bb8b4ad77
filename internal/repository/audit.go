package repository

import (
	"context"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
)

// AuditRepository defines persistence operations for the audit log.
type AuditRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, entry *domain.AuditEntry) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
