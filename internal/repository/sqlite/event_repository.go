package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	organizer_id INTEGER NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'pending',
	capacity INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const eventColumns = `id, title, description, location, start_time, end_time, organizer_id, status, capacity, created_at, updated_at`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) (int64, error) {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = domain.EventPending
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO events (title, description, location, start_time, end_time, organizer_id, status, capacity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.OrganizerID,
		string(event.Status),
		event.Capacity,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event last insert id: %w", err)
	}
	event.ID = id
	return id, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+eventColumns+`
FROM events
WHERE id = ?`,
		id,
	)
	return scanEvent(row)
}

func (r *EventRepository) ListByStatus(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+eventColumns+`
FROM events
WHERE status = ?
ORDER BY start_time ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+eventColumns+`
FROM events
WHERE organizer_id = ?
ORDER BY created_at DESC`,
		organizerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by organizer: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id int64, status domain.EventStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		string(status),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("event rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %w", repository.ErrNotFound)
	}
	return nil
}

func collectEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row interface {
	Scan(dest ...any) error
}) (*domain.Event, error) {
	var (
		event  domain.Event
		status string
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.StartTime,
		&event.EndTime,
		&event.OrganizerID,
		&status,
		&event.Capacity,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	event.Status = domain.EventStatus(status)
	return &event, nil
}
