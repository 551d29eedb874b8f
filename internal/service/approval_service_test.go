package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type mockApprovalStore struct {
	details   map[string]models.RegistrationDetail
	updateErr error
	updated   []models.RegistrationStatus
	marked    []string
	markErr   error
}

func (m *mockApprovalStore) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	if d, ok := m.details[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApprovalStore) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus, approvedBy string, approvedAt time.Time, expectedVersion int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, status)
	if d, ok := m.details[id]; ok {
		d.Status = status
		d.Version++
		m.details[id] = d
	}
	return nil
}

func (m *mockApprovalStore) MarkEmailSent(ctx context.Context, id string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, id)
	if d, ok := m.details[id]; ok {
		d.EmailSent = true
		m.details[id] = d
	}
	return nil
}

type mockNotifier struct {
	calls []string
	err   error
}

func (m *mockNotifier) NotifyApproval(reg *models.RegistrationDetail) error {
	m.calls = append(m.calls, reg.ID)
	return m.err
}

func approvalFixture(emailSent bool, status models.RegistrationStatus) (*ApprovalService, *mockApprovalStore, *mockNotifier) {
	store := &mockApprovalStore{details: map[string]models.RegistrationDetail{
		"reg-1": {
			Registration: models.Registration{
				ID:           "reg-1",
				EventID:      "evt-1",
				StudentName:  "Jamie Park",
				StudentEmail: "jamie@campus.edu",
				Status:       status,
				EmailSent:    emailSent,
				Version:      2,
			},
			EventTitle:     "Tech Fest",
			EventDate:      time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC),
			EventVenue:     "Main Hall",
			EventCreatedBy: "admin-1",
		},
	}}
	notifier := &mockNotifier{}
	svc := NewApprovalService(store, notifier, nil)
	return svc, store, notifier
}

func TestTransitionApproveSendsNotificationOnce(t *testing.T) {
	svc, store, notifier := approvalFixture(false, models.RegistrationStatusPending)

	detail, err := svc.Transition(context.Background(), "reg-1", models.OwnerScope("owner-1"), models.RegistrationStatusApproved)
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationStatusApproved, detail.Status)
	require.NotNil(t, detail.ApprovedBy)
	assert.Equal(t, "owner-1", *detail.ApprovedBy)
	assert.NotNil(t, detail.ApprovedAt)
	assert.True(t, detail.EmailSent)
	assert.Equal(t, []string{"reg-1"}, notifier.calls)
	assert.Equal(t, []string{"reg-1"}, store.marked)
}

func TestTransitionDeclineSkipsNotification(t *testing.T) {
	svc, _, notifier := approvalFixture(false, models.RegistrationStatusPending)

	detail, err := svc.Transition(context.Background(), "reg-1", models.OwnerScope("owner-1"), models.RegistrationStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusDeclined, detail.Status)
	assert.Empty(t, notifier.calls)
}

func TestTransitionAdminScopeEnforced(t *testing.T) {
	svc, _, _ := approvalFixture(false, models.RegistrationStatusPending)

	_, err := svc.Transition(context.Background(), "reg-1", models.AdminScope("admin-2"), models.RegistrationStatusApproved)
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)

	_, err = svc.Transition(context.Background(), "reg-1", models.AdminScope("admin-1"), models.RegistrationStatusApproved)
	require.NoError(t, err)
}

func TestTransitionNotifyFailureSwallowed(t *testing.T) {
	svc, store, notifier := approvalFixture(false, models.RegistrationStatusPending)
	notifier.err = errors.New("smtp down")

	detail, err := svc.Transition(context.Background(), "reg-1", models.OwnerScope("owner-1"), models.RegistrationStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusApproved, detail.Status)
	assert.False(t, detail.EmailSent)
	assert.Empty(t, store.marked)
}

func TestTransitionAlreadyNotifiedNotReNotified(t *testing.T) {
	svc, _, notifier := approvalFixture(true, models.RegistrationStatusApproved)

	detail, err := svc.Transition(context.Background(), "reg-1", models.OwnerScope("owner-1"), models.RegistrationStatusApproved)
	require.NoError(t, err)
	assert.True(t, detail.EmailSent)
	assert.Empty(t, notifier.calls)
}

func TestTransitionConflictOnStaleVersion(t *testing.T) {
	svc, store, _ := approvalFixture(false, models.RegistrationStatusPending)
	store.updateErr = appErrors.Clone(appErrors.ErrConflict, "registration was modified concurrently")

	_, err := svc.Transition(context.Background(), "reg-1", models.OwnerScope("owner-1"), models.RegistrationStatusApproved)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestTransitionUnknownRegistration(t *testing.T) {
	svc, _, _ := approvalFixture(false, models.RegistrationStatusPending)

	_, err := svc.Transition(context.Background(), "reg-missing", models.OwnerScope("owner-1"), models.RegistrationStatusApproved)
	require.ErrorIs(t, err, appErrors.ErrRegistrationNotFound)
}

func TestTransitionRejectsNonTerminalTarget(t *testing.T) {
	svc, _, _ := approvalFixture(false, models.RegistrationStatusPending)

	_, err := svc.Transition(context.Background(), "reg-1", models.OwnerScope("owner-1"), models.RegistrationStatusPending)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResendNotificationRequiresApproved(t *testing.T) {
	svc, _, notifier := approvalFixture(false, models.RegistrationStatusPending)

	_, err := svc.ResendNotification(context.Background(), "reg-1", models.OwnerScope("owner-1"))
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, notifier.calls)
}

func TestResendNotificationResends(t *testing.T) {
	svc, store, notifier := approvalFixture(true, models.RegistrationStatusApproved)

	detail, err := svc.ResendNotification(context.Background(), "reg-1", models.AdminScope("admin-1"))
	require.NoError(t, err)
	assert.True(t, detail.EmailSent)
	assert.Equal(t, []string{"reg-1"}, notifier.calls)
	assert.Equal(t, []string{"reg-1"}, store.marked)
}

func TestResendNotificationSurfacesFailure(t *testing.T) {
	svc, _, notifier := approvalFixture(true, models.RegistrationStatusApproved)
	notifier.err = errors.New("smtp down")

	_, err := svc.ResendNotification(context.Background(), "reg-1", models.OwnerScope("owner-1"))
	require.Error(t, err)
}
