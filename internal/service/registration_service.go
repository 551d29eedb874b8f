package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type admissionEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type registrationStore interface {
	FindByEventAndIdentity(ctx context.Context, eventID, email, studentID string) ([]models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) error
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error)
}

// GroupMemberRequest describes one group member in a submission.
type GroupMemberRequest struct {
	Name       string `json:"name" validate:"required"`
	StudentID  string `json:"studentId" validate:"required"`
	Department string `json:"department" validate:"required,oneof=CSE ECE EEE MECH CIVIL IT BBA MBA OTHER"`
	Year       string `json:"year" validate:"required,oneof='1st Year' '2nd Year' '3rd Year' '4th Year' PG"`
}

// RegisterRequest is a raw registration submission.
type RegisterRequest struct {
	EventID      string               `json:"event_id" validate:"required"`
	StudentName  string               `json:"student_name" validate:"required"`
	StudentEmail string               `json:"student_email" validate:"required,email"`
	StudentID    string               `json:"student_id" validate:"required"`
	Department   string               `json:"department" validate:"required,oneof=CSE ECE EEE MECH CIVIL IT BBA MBA OTHER"`
	Year         string               `json:"year" validate:"required,oneof='1st Year' '2nd Year' '3rd Year' '4th Year' PG"`
	Phone        string               `json:"phone" validate:"required"`
	GroupMembers []GroupMemberRequest `json:"group_members" validate:"omitempty,dive"`
}

// RegistrationService admits submissions against published events and lists
// registrations for review.
type RegistrationService struct {
	events    admissionEventReader
	store     registrationStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(events admissionEventReader, store registrationStore, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{events: events, store: store, validator: validate, logger: logger, now: time.Now}
}

// Register validates and admits a submission. A soft-deleted event is
// indistinguishable from a missing one; registration is open strictly before
// the deadline; individual events silently drop submitted group members;
// a prior registration with the same email or student id on the event is a
// duplicate. No notification is sent at admission time.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEventNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !event.IsActive {
		return nil, appErrors.ErrEventNotFound
	}

	if !event.IsRegistrationOpen(s.now()) {
		return nil, appErrors.ErrRegistrationClosed
	}

	email := strings.ToLower(strings.TrimSpace(req.StudentEmail))

	members := models.GroupMembers{}
	if event.RegistrationType == models.RegistrationTypeGroup {
		for _, m := range req.GroupMembers {
			members = append(members, models.GroupMember{
				Name:       m.Name,
				StudentID:  m.StudentID,
				Department: m.Department,
				Year:       m.Year,
			})
		}
	}

	existing, err := s.store.FindByEventAndIdentity(ctx, event.ID, email, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registrations")
	}
	if len(existing) > 0 {
		return nil, appErrors.ErrDuplicateRegistration
	}

	reg := &models.Registration{
		EventID:      event.ID,
		StudentName:  strings.TrimSpace(req.StudentName),
		StudentEmail: email,
		StudentID:    req.StudentID,
		Department:   req.Department,
		Year:         req.Year,
		Phone:        req.Phone,
		GroupMembers: members,
		Status:       models.RegistrationStatusPending,
		EmailSent:    false,
	}

	if err := s.store.Create(ctx, reg); err != nil {
		// The store reports unique-index violations as duplicates, closing
		// the race between the check above and this insert.
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist registration")
	}

	s.logger.Info("registration admitted",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", event.ID),
		zap.String("student_id", reg.StudentID),
	)
	return reg, nil
}

// List returns registrations visible to the scope, newest first.
func (s *RegistrationService) List(ctx context.Context, scope models.Scope, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	filter.CreatedBy = scope.CreatorFilter()
	regs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return regs, nil
}

// GroupByDepartment buckets registrations for the review screen.
func GroupByDepartment(regs []models.RegistrationDetail) map[string][]models.RegistrationDetail {
	grouped := make(map[string][]models.RegistrationDetail)
	for _, reg := range regs {
		grouped[reg.Department] = append(grouped[reg.Department], reg)
	}
	return grouped
}
