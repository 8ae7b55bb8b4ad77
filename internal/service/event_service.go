package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
)

var (
	// ErrEventNotApproved is returned when registering for an event still
	// in (or rejected from) the approval workflow.
	ErrEventNotApproved = errors.New("event is not open for registration")
	// ErrEventFull is returned when an event has reached capacity.
	ErrEventFull = errors.New("event is full")
	// ErrAlreadyRegistered is returned on a second registration for the
	// same event.
	ErrAlreadyRegistered = errors.New("already registered for this event")
)

// EventService runs the proposal/approval workflow and ticketing.
type EventService interface {
	Propose(ctx context.Context, organizerID int64, event *domain.Event) (*domain.Event, error)
	Approve(ctx context.Context, eventID int64) error
	Reject(ctx context.Context, eventID int64) error
	GetEvent(ctx context.Context, eventID int64) (*domain.Event, error)
	ListApproved(ctx context.Context) ([]domain.Event, error)
	ListPending(ctx context.Context) ([]domain.Event, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error)
	RegisterForEvent(ctx context.Context, eventID, userID int64) (*domain.Ticket, error)
	ListTickets(ctx context.Context, userID int64) ([]domain.Ticket, error)
}

type eventService struct {
	events  repository.EventRepository
	tickets repository.TicketRepository
}

func NewEventService(events repository.EventRepository, tickets repository.TicketRepository) EventService {
	return &eventService{events: events, tickets: tickets}
}

// Propose creates a pending event owned by organizerID. An admin decides
// its fate later.
func (s *eventService) Propose(ctx context.Context, organizerID int64, event *domain.Event) (*domain.Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return nil, errors.New("event title is required")
	}
	if event.StartTime.IsZero() || event.EndTime.IsZero() {
		return nil, errors.New("event start and end times are required")
	}
	if !event.EndTime.After(event.StartTime) {
		return nil, errors.New("event must end after it starts")
	}
	if event.Capacity < 0 {
		return nil, errors.New("event capacity cannot be negative")
	}

	event.OrganizerID = organizerID
	event.Status = domain.EventPending

	if _, err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) Approve(ctx context.Context, eventID int64) error {
	return s.events.UpdateStatus(ctx, eventID, domain.EventApproved)
}

func (s *eventService) Reject(ctx context.Context, eventID int64) error {
	return s.events.UpdateStatus(ctx, eventID, domain.EventRejected)
}

func (s *eventService) GetEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

func (s *eventService) ListApproved(ctx context.Context) ([]domain.Event, error) {
	return s.events.ListByStatus(ctx, domain.EventApproved)
}

func (s *eventService) ListPending(ctx context.Context) ([]domain.Event, error) {
	return s.events.ListByStatus(ctx, domain.EventPending)
}

func (s *eventService) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error) {
	return s.events.ListByOrganizer(ctx, organizerID)
}

// RegisterForEvent issues one ticket per user per approved event, subject
// to capacity. Zero capacity means unlimited.
func (s *eventService) RegisterForEvent(ctx context.Context, eventID, userID int64) (*domain.Ticket, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.EventApproved {
		return nil, ErrEventNotApproved
	}

	taken, err := s.tickets.ExistsForUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAlreadyRegistered
	}

	if event.Capacity > 0 {
		issued, err := s.tickets.CountByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if issued >= event.Capacity {
			return nil, ErrEventFull
		}
	}

	ticket := &domain.Ticket{
		EventID:  eventID,
		UserID:   userID,
		Code:     uuid.NewString(),
		IssuedAt: time.Now().UTC(),
	}
	if _, err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("issue ticket: %w", err)
	}
	return ticket, nil
}

func (s *eventService) ListTickets(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID)
}
