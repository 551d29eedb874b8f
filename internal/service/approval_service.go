package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type approvalStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, approvedBy string, approvedAt time.Time, expectedVersion int) error
	MarkEmailSent(ctx context.Context, id string) error
}

// Notifier delivers the approval email. Delivery is best-effort: the approval
// of record stands even when notification fails.
type Notifier interface {
	NotifyApproval(reg *models.RegistrationDetail) error
}

// ApprovalService transitions registrations between review states.
type ApprovalService struct {
	store    approvalStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewApprovalService constructs ApprovalService.
func NewApprovalService(store approvalStore, notifier Notifier, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// Transition sets a registration to approved or declined on behalf of an
// authorized actor. Admins may only review registrations on events they
// created; the owner reviews anything. The status write carries an optimistic
// version check, so concurrent reviews of the same registration surface as a
// conflict instead of silently overwriting each other. On approval the
// notifier fires once: a registration whose email already went out is never
// re-notified, even when re-transitioned.
func (s *ApprovalService) Transition(ctx context.Context, id string, scope models.Scope, target models.RegistrationStatus) (*models.RegistrationDetail, error) {
	if !target.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be approved or declined")
	}

	detail, err := s.store.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRegistrationNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if !scope.CanManage(detail.EventCreatedBy) {
		return nil, appErrors.ErrAccessDenied
	}

	approvedAt := s.now().UTC()
	if err := s.store.UpdateStatus(ctx, detail.ID, target, scope.ActorID(), approvedAt, detail.Version); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration")
	}

	actorID := scope.ActorID()
	detail.Status = target
	detail.ApprovedBy = &actorID
	detail.ApprovedAt = &approvedAt
	detail.Version++

	if target == models.RegistrationStatusApproved && !detail.EmailSent {
		s.notify(ctx, detail)
	}

	return detail, nil
}

// ResendNotification re-sends the approval email for an already approved
// registration. Unlike the transition path this is explicit, so delivery
// failures are surfaced to the caller.
func (s *ApprovalService) ResendNotification(ctx context.Context, id string, scope models.Scope) (*models.RegistrationDetail, error) {
	detail, err := s.store.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRegistrationNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if !scope.CanManage(detail.EventCreatedBy) {
		return nil, appErrors.ErrAccessDenied
	}
	if detail.Status != models.RegistrationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration is not approved")
	}

	if s.notifier == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "notifier is not configured")
	}
	if err := s.notifier.NotifyApproval(detail); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send notification")
	}

	if err := s.store.MarkEmailSent(ctx, detail.ID); err != nil {
		s.logger.Warn("failed to record email sent flag", zap.String("registration_id", detail.ID), zap.Error(err))
	}
	detail.EmailSent = true
	return detail, nil
}

// notify delivers the approval email and records the flag. Failures are
// logged and swallowed; the transition already happened and is authoritative.
func (s *ApprovalService) notify(ctx context.Context, detail *models.RegistrationDetail) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyApproval(detail); err != nil {
		s.logger.Warn("approval notification failed",
			zap.String("registration_id", detail.ID),
			zap.String("student_email", detail.StudentEmail),
			zap.Error(err),
		)
		return
	}
	if err := s.store.MarkEmailSent(ctx, detail.ID); err != nil {
		s.logger.Warn("failed to record email sent flag", zap.String("registration_id", detail.ID), zap.Error(err))
		return
	}
	detail.EmailSent = true
}
