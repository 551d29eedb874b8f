package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type mockEventReader struct {
	events map[string]models.Event
}

func (m *mockEventReader) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := m.events[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

type mockRegistrationStore struct {
	existing  map[string][]models.Registration
	created   []*models.Registration
	createErr error
	listed    []models.RegistrationDetail
	lastList  models.RegistrationFilter
}

func (m *mockRegistrationStore) FindByEventAndIdentity(ctx context.Context, eventID, email, studentID string) ([]models.Registration, error) {
	var matches []models.Registration
	for _, reg := range m.existing[eventID] {
		if reg.StudentEmail == email || reg.StudentID == studentID {
			matches = append(matches, reg)
		}
	}
	return matches, nil
}

func (m *mockRegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	if m.createErr != nil {
		return m.createErr
	}
	reg.ID = "reg-new"
	m.created = append(m.created, reg)
	return nil
}

func (m *mockRegistrationStore) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, error) {
	m.lastList = filter
	return m.listed, nil
}

var deadline = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func admissionFixture(t *testing.T, eventType models.RegistrationType, now time.Time) (*RegistrationService, *mockRegistrationStore) {
	t.Helper()
	events := &mockEventReader{events: map[string]models.Event{
		"evt-1": {
			ID:                   "evt-1",
			Title:                "Tech Fest",
			EventDate:            deadline.Add(48 * time.Hour),
			RegistrationDeadline: deadline,
			RegistrationType:     eventType,
			IsActive:             true,
		},
		"evt-gone": {
			ID:                   "evt-gone",
			RegistrationDeadline: deadline,
			RegistrationType:     eventType,
			IsActive:             false,
		},
	}}
	store := &mockRegistrationStore{existing: map[string][]models.Registration{}}
	svc := NewRegistrationService(events, store, nil, nil)
	svc.now = func() time.Time { return now }
	return svc, store
}

func validRequest() RegisterRequest {
	return RegisterRequest{
		EventID:      "evt-1",
		StudentName:  "Jamie Park",
		StudentEmail: "Jamie@Campus.EDU",
		StudentID:    "S1",
		Department:   "CSE",
		Year:         "2nd Year",
		Phone:        "555-0100",
	}
}

func TestRegisterIndividualDropsGroupMembers(t *testing.T) {
	svc, store := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))

	req := validRequest()
	req.GroupMembers = []GroupMemberRequest{{Name: "Alex", StudentID: "S2", Department: "ECE", Year: "1st Year"}}

	reg, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, reg.GroupMembers)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.False(t, reg.EmailSent)
	require.Len(t, store.created, 1)
}

func TestRegisterGroupStoresMembersVerbatim(t *testing.T) {
	svc, _ := admissionFixture(t, models.RegistrationTypeGroup, deadline.Add(-time.Hour))

	req := validRequest()
	req.GroupMembers = []GroupMemberRequest{
		{Name: "Alex", StudentID: "S2", Department: "ECE", Year: "1st Year"},
		{Name: "Sam", StudentID: "S3", Department: "IT", Year: "PG"},
	}

	reg, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, reg.GroupMembers, 2)
	assert.Equal(t, "S3", reg.GroupMembers[1].StudentID)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, store := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))

	_, err := svc.Register(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "jamie@campus.edu", store.created[0].StudentEmail)
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	svc, store := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))
	store.existing["evt-1"] = []models.Registration{{StudentEmail: "jamie@campus.edu", StudentID: "OTHER"}}

	_, err := svc.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, appErrors.ErrDuplicateRegistration)
}

func TestRegisterDuplicateStudentIDDifferentEmail(t *testing.T) {
	svc, store := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))
	store.existing["evt-1"] = []models.Registration{{StudentEmail: "other@campus.edu", StudentID: "S1"}}

	_, err := svc.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, appErrors.ErrDuplicateRegistration)
}

func TestRegisterDeadlineBoundary(t *testing.T) {
	cases := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"just before deadline", deadline.Add(-time.Second), nil},
		{"exactly at deadline", deadline, appErrors.ErrRegistrationClosed},
		{"after deadline", deadline.Add(time.Hour), appErrors.ErrRegistrationClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := admissionFixture(t, models.RegistrationTypeIndividual, tc.now)
			_, err := svc.Register(context.Background(), validRequest())
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegisterMissingAndInactiveEventLookAlike(t *testing.T) {
	svc, _ := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))

	req := validRequest()
	req.EventID = "evt-missing"
	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrEventNotFound)

	req.EventID = "evt-gone"
	_, err = svc.Register(context.Background(), req)
	require.ErrorIs(t, err, appErrors.ErrEventNotFound)
}

func TestRegisterInsertRaceReportsDuplicate(t *testing.T) {
	svc, store := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))
	store.createErr = appErrors.ErrDuplicateRegistration

	_, err := svc.Register(context.Background(), validRequest())
	require.ErrorIs(t, err, appErrors.ErrDuplicateRegistration)
}

func TestRegisterRejectsUnknownDepartment(t *testing.T) {
	svc, _ := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))

	req := validRequest()
	req.Department = "PHYSICS"
	_, err := svc.Register(context.Background(), req)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestListAppliesScopeFilter(t *testing.T) {
	svc, store := admissionFixture(t, models.RegistrationTypeIndividual, deadline.Add(-time.Hour))

	_, err := svc.List(context.Background(), models.AdminScope("admin-1"), models.RegistrationFilter{})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", store.lastList.CreatedBy)

	_, err = svc.List(context.Background(), models.OwnerScope("owner-1"), models.RegistrationFilter{})
	require.NoError(t, err)
	assert.Equal(t, "", store.lastList.CreatedBy)
}

func TestGroupByDepartment(t *testing.T) {
	regs := []models.RegistrationDetail{
		{Registration: models.Registration{ID: "r1", Department: "CSE"}},
		{Registration: models.Registration{ID: "r2", Department: "ECE"}},
		{Registration: models.Registration{ID: "r3", Department: "CSE"}},
	}
	grouped := GroupByDepartment(regs)
	assert.Len(t, grouped["CSE"], 2)
	assert.Len(t, grouped["ECE"], 1)
}
