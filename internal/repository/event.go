package repository

import (
	"context"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
)

// EventRepository defines persistence operations for Event entities.
type EventRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, event *domain.Event) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	ListByStatus(ctx context.Context, status domain.EventStatus) ([]domain.Event, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error)
	UpdateStatus(ctx context.Context, id int64, status domain.EventStatus) error
}

// TicketRepository defines persistence operations for event tickets.
type TicketRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, ticket *domain.Ticket) (int64, error)
	CountByEvent(ctx context.Context, eventID int64) (int, error)
	ExistsForUser(ctx context.Context, eventID, userID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error)
}
