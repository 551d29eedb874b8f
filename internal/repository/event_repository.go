package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Pyrogramic/test-event-website/internal/models"
)

const eventColumns = `id, title, description, event_date, registration_deadline, registration_type, venue, max_participants, created_by, is_active, created_at, updated_at`

// EventRepository handles persistence of events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID returns an event by its ID regardless of active state.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events matching the filter ordered by event date descending.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var conditions []string
	var args []interface{}

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY event_date DESC`, eventColumns, clause)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Create persists a new event record.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, event_date, registration_deadline, registration_type, venue, max_participants, created_by, is_active, created_at, updated_at)
        VALUES (:id, :title, :description, :event_date, :registration_deadline, :registration_type, :venue, :max_participants, :created_by, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update persists mutable event fields.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, event_date = :event_date,
        registration_deadline = :registration_deadline, registration_type = :registration_type, venue = :venue,
        max_participants = :max_participants, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// SetActive flips the soft-delete flag.
func (r *EventRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE events SET is_active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set event active: %w", err)
	}
	return nil
}

// CountActive counts active events, optionally restricted to a creator.
func (r *EventRepository) CountActive(ctx context.Context, createdBy string) (int, error) {
	query := `SELECT COUNT(*) FROM events WHERE is_active = TRUE`
	var args []interface{}
	if createdBy != "" {
		query += ` AND created_by = $1`
		args = append(args, createdBy)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count active events: %w", err)
	}
	return count, nil
}

// CountUpcoming counts active events with a future event date.
func (r *EventRepository) CountUpcoming(ctx context.Context, createdBy string, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM events WHERE is_active = TRUE AND event_date > $1`
	args := []interface{}{now}
	if createdBy != "" {
		query += ` AND created_by = $2`
		args = append(args, createdBy)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count upcoming events: %w", err)
	}
	return count, nil
}
