package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

const registrationColumns = `r.id, r.event_id, r.student_name, r.student_email, r.student_id, r.department, r.year, r.phone, r.group_members, r.status, r.approved_by, r.approved_at, r.email_sent, r.version, r.created_at`

const registrationDetailColumns = registrationColumns + `,
        e.title AS event_title, e.event_date AS event_date, e.venue AS event_venue,
        e.registration_type AS event_type, e.created_by AS event_created_by`

// RegistrationRepository handles persistence of registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// FindByEventAndIdentity returns registrations on the event matching either
// the email or the student id. Email comparison is case-insensitive.
func (r *RegistrationRepository) FindByEventAndIdentity(ctx context.Context, eventID, email, studentID string) ([]models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE r.event_id = $1 AND (LOWER(r.student_email) = LOWER($2) OR r.student_id = $3)`, registrationColumns)
	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, eventID, email, studentID); err != nil {
		return nil, fmt.Errorf("find registrations by identity: %w", err)
	}
	return regs, nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE r.id = $1`, registrationColumns)
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindDetailByID returns a registration with its event context.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations r JOIN events e ON e.id = r.event_id WHERE r.id = $1`, registrationDetailColumns)
	var detail models.RegistrationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new registration. Unique-index violations on
// (event, email) or (event, student id) are reported as duplicates, which
// closes the check-then-insert race deterministically.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	if reg.Status == "" {
		reg.Status = models.RegistrationStatusPending
	}
	if reg.GroupMembers == nil {
		reg.GroupMembers = models.GroupMembers{}
	}
	const query = `INSERT INTO registrations (id, event_id, student_name, student_email, student_id, department, year, phone, group_members, status, approved_by, approved_at, email_sent, version, created_at)
        VALUES (:id, :event_id, :student_name, :student_email, :student_id, :department, :year, :phone, :group_members, :status, :approved_by, :approved_at, :email_sent, :version, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, reg); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.ErrDuplicateRegistration
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

// List returns registrations with event context, newest first. CreatedBy
// restricts the result to events owned by that user.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("r.event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("e.created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM registrations r JOIN events e ON e.id = r.event_id%s ORDER BY r.created_at DESC`, registrationDetailColumns, clause)
	var regs []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// UpdateStatus transitions a registration with an optimistic version check.
// A stale expectedVersion affects zero rows and reports a conflict.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, approvedBy string, approvedAt time.Time, expectedVersion int) error {
	const query = `UPDATE registrations SET status = $2, approved_by = $3, approved_at = $4, version = version + 1
        WHERE id = $1 AND version = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, approvedBy, approvedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "registration was modified concurrently")
	}
	return nil
}

// MarkEmailSent records that the approval notification went out. Best-effort:
// callers tolerate the loss of this write.
func (r *RegistrationRepository) MarkEmailSent(ctx context.Context, id string) error {
	const query = `UPDATE registrations SET email_sent = TRUE, version = version + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark email sent: %w", err)
	}
	return nil
}

// Count counts registrations, optionally restricted to events of one creator.
func (r *RegistrationRepository) Count(ctx context.Context, createdBy string) (int, error) {
	return r.count(ctx, createdBy, "")
}

// CountByStatus counts registrations in the given status, scoped like Count.
func (r *RegistrationRepository) CountByStatus(ctx context.Context, createdBy string, status models.RegistrationStatus) (int, error) {
	return r.count(ctx, createdBy, status)
}

func (r *RegistrationRepository) count(ctx context.Context, createdBy string, status models.RegistrationStatus) (int, error) {
	query := `SELECT COUNT(*) FROM registrations r JOIN events e ON e.id = r.event_id`
	var conditions []string
	var args []interface{}
	if createdBy != "" {
		conditions = append(conditions, fmt.Sprintf("e.created_by = $%d", len(args)+1))
		args = append(args, createdBy)
	}
	if status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}
