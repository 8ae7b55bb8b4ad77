package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
)

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id INTEGER NOT NULL REFERENCES events(id),
	user_id INTEGER NOT NULL REFERENCES users(id),
	code TEXT NOT NULL UNIQUE,
	issued_at DATETIME NOT NULL,
	UNIQUE(event_id, user_id)
);
`

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) repository.TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTicketsTable); err != nil {
		return fmt.Errorf("create tickets table: %w", err)
	}
	return nil
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (int64, error) {
	ticket.IssuedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tickets (event_id, user_id, code, issued_at)
VALUES (?, ?, ?, ?)`,
		ticket.EventID,
		ticket.UserID,
		ticket.Code,
		ticket.IssuedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return 0, fmt.Errorf("ticket %w: %v", repository.ErrDuplicate, err)
		}
		return 0, fmt.Errorf("insert ticket: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ticket last insert id: %w", err)
	}
	ticket.ID = id
	return id, nil
}

func (r *TicketRepository) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

func (r *TicketRepository) ExistsForUser(ctx context.Context, eventID, userID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM tickets WHERE event_id = ? AND user_id = ?`,
		eventID,
		userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("lookup ticket: %w", err)
	}
	return count > 0, nil
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, event_id, user_id, code, issued_at
FROM tickets
WHERE user_id = ?
ORDER BY issued_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.UserID, &t.Code, &t.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}
