package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
)

func newEventFixtures(t *testing.T) (repository.EventRepository, repository.TicketRepository, int64) {
	t.Helper()
	ctx := context.Background()
	db := openTestDB(t)

	users := NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	events := NewEventRepository(db)
	require.NoError(t, events.Init(ctx))
	tickets := NewTicketRepository(db)
	require.NoError(t, tickets.Init(ctx))

	organizer := sampleUser("org", "org@x.edu")
	organizer.Role = domain.RoleOrganizer
	organizerID, err := users.Create(ctx, organizer)
	require.NoError(t, err)

	return events, tickets, organizerID
}

func sampleEvent(organizerID int64) *domain.Event {
	start := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	return &domain.Event{
		Title:       "Open Day",
		Description: "Campus open day",
		Location:    "Main hall",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		OrganizerID: organizerID,
		Capacity:    2,
	}
}

func TestEventRepositoryWorkflow(t *testing.T) {
	ctx := context.Background()
	events, _, organizerID := newEventFixtures(t)

	id, err := events.Create(ctx, sampleEvent(organizerID))
	require.NoError(t, err)

	created, err := events.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.EventPending, created.Status, "new events start pending")

	pending, err := events.ListByStatus(ctx, domain.EventPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, events.UpdateStatus(ctx, id, domain.EventApproved))
	approved, err := events.ListByStatus(ctx, domain.EventApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "Open Day", approved[0].Title)

	mine, err := events.ListByOrganizer(ctx, organizerID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	err = events.UpdateStatus(ctx, 999, domain.EventApproved)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicketRepositoryOnePerUser(t *testing.T) {
	ctx := context.Background()
	events, tickets, organizerID := newEventFixtures(t)

	eventID, err := events.Create(ctx, sampleEvent(organizerID))
	require.NoError(t, err)

	_, err = tickets.Create(ctx, &domain.Ticket{EventID: eventID, UserID: organizerID, Code: "t-1"})
	require.NoError(t, err)

	exists, err := tickets.ExistsForUser(ctx, eventID, organizerID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = tickets.Create(ctx, &domain.Ticket{EventID: eventID, UserID: organizerID, Code: "t-2"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	count, err := tickets.CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	list, err := tickets.ListByUser(ctx, organizerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t-1", list[0].Code)
}
