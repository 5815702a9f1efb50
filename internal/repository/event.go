package repository

import (
	"context"
	"errors"
	"fmt"

	"stanfood-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("record not found")

const eventColumns = `id, COALESCE(pin_id, ''), name, description, time_start, duration`

// deleteEventQuery is a no-op for an absent event, so retried transactions
// can issue it again
const deleteEventQuery = `DELETE FROM events WHERE id = $1`

// EventRepository handles database operations for events
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// ListEvents returns a point-in-time snapshot of every event
func (r *EventRepository) ListEvents(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY id`
	return r.list(ctx, query)
}

// ListByPinID returns the events of a pin, ordered by pin_id via its index
func (r *EventRepository) ListByPinID(ctx context.Context, pinID string) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE pin_id = $1 ORDER BY pin_id, id`
	return r.list(ctx, query, pinID)
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var event models.Event
	err := row.Scan(
		&event.ID, &event.PinID, &event.Name, &event.Description,
		&event.TimeStart, &event.Duration,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
