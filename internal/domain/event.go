package domain

import "time"

// EventStatus tracks an event through the proposal workflow.
type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventApproved EventStatus = "approved"
	EventRejected EventStatus = "rejected"
)

// Event is a campus event proposed by an organizer. It is only visible
// to attendees once an admin approves it.
type Event struct {
	ID          int64
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	OrganizerID int64
	Status      EventStatus
	Capacity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Ticket records one attendee registration for an approved event.
type Ticket struct {
	ID       int64
	EventID  int64
	UserID   int64
	Code     string
	IssuedAt time.Time
}
