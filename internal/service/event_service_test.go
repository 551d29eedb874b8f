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

type mockEventRepo struct {
	events      map[string]models.Event
	lastFilter  models.EventFilter
	created     *models.Event
	updated     *models.Event
	deactivated []string
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := m.events[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	m.lastFilter = filter
	var out []models.Event
	for _, e := range m.events {
		if filter.ActiveOnly && !e.IsActive {
			continue
		}
		if filter.CreatedBy != "" && e.CreatedBy != filter.CreatedBy {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	event.ID = "evt-new"
	m.created = event
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	m.updated = event
	return nil
}

func (m *mockEventRepo) SetActive(ctx context.Context, id string, active bool) error {
	if !active {
		m.deactivated = append(m.deactivated, id)
	}
	return nil
}

var eventNow = time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)

func eventFixture() (*EventService, *mockEventRepo) {
	repo := &mockEventRepo{events: map[string]models.Event{
		"evt-up":   {ID: "evt-up", EventDate: eventNow.Add(72 * time.Hour), CreatedBy: "admin-1", IsActive: true},
		"evt-past": {ID: "evt-past", EventDate: eventNow.Add(-72 * time.Hour), CreatedBy: "admin-2", IsActive: true},
		"evt-del":  {ID: "evt-del", EventDate: eventNow.Add(72 * time.Hour), CreatedBy: "admin-1", IsActive: false},
	}}
	svc := NewEventService(repo, nil, nil, nil, time.Minute)
	svc.now = func() time.Time { return eventNow }
	return svc, repo
}

func validEventRequest() EventRequest {
	return EventRequest{
		Title:                "Robotics Workshop",
		Description:          "Hands-on session",
		EventDate:            eventNow.Add(96 * time.Hour),
		RegistrationDeadline: eventNow.Add(48 * time.Hour),
		RegistrationType:     "group",
		Venue:                "Lab 2",
	}
}

func TestPublicListSplitsUpcomingAndPast(t *testing.T) {
	svc, _ := eventFixture()

	listing, cacheHit, err := svc.PublicList(context.Background())
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, listing.Upcoming, 1)
	require.Len(t, listing.Past, 1)
	assert.Equal(t, "evt-up", listing.Upcoming[0].ID)
}

func TestGetHidesSoftDeletedEvent(t *testing.T) {
	svc, _ := eventFixture()

	_, err := svc.Get(context.Background(), "evt-del")
	require.ErrorIs(t, err, appErrors.ErrEventNotFound)

	event, err := svc.Get(context.Background(), "evt-up")
	require.NoError(t, err)
	assert.Equal(t, "evt-up", event.ID)
}

func TestCreateRejectsDeadlineAfterEventDate(t *testing.T) {
	svc, _ := eventFixture()

	req := validEventRequest()
	req.RegistrationDeadline = req.EventDate.Add(time.Hour)
	_, err := svc.Create(context.Background(), models.OwnerScope("owner-1"), req)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateSetsCreatorAndActive(t *testing.T) {
	svc, repo := eventFixture()

	event, err := svc.Create(context.Background(), models.AdminScope("admin-1"), validEventRequest())
	require.NoError(t, err)
	assert.Equal(t, "admin-1", event.CreatedBy)
	assert.True(t, event.IsActive)
	assert.Equal(t, models.RegistrationTypeGroup, repo.created.RegistrationType)
}

func TestUpdateScopeEnforced(t *testing.T) {
	svc, _ := eventFixture()

	_, err := svc.Update(context.Background(), models.AdminScope("admin-2"), "evt-up", validEventRequest())
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)

	_, err = svc.Update(context.Background(), models.AdminScope("admin-1"), "evt-up", validEventRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), models.OwnerScope("owner-1"), "evt-up", validEventRequest())
	require.NoError(t, err)
}

func TestDeleteSoftDeletes(t *testing.T) {
	svc, repo := eventFixture()

	require.NoError(t, svc.Delete(context.Background(), models.OwnerScope("owner-1"), "evt-past"))
	assert.Equal(t, []string{"evt-past"}, repo.deactivated)

	err := svc.Delete(context.Background(), models.AdminScope("admin-1"), "evt-past")
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)
}

func TestListForScopeFiltersByCreator(t *testing.T) {
	svc, repo := eventFixture()

	_, err := svc.ListForScope(context.Background(), models.AdminScope("admin-1"))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", repo.lastFilter.CreatedBy)
	assert.True(t, repo.lastFilter.ActiveOnly)

	_, err = svc.ListForScope(context.Background(), models.OwnerScope("owner-1"))
	require.NoError(t, err)
	assert.Equal(t, "", repo.lastFilter.CreatedBy)
}
