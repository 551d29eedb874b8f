package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Pyrogramic/test-event-website/internal/models"
)

func eventRows(id string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "title", "description", "event_date", "registration_deadline", "registration_type", "venue", "max_participants", "created_by", "is_active", "created_at", "updated_at"}).
		AddRow(id, "Tech Fest", "Annual fest", now.Add(48*time.Hour), now.Add(24*time.Hour), models.RegistrationTypeIndividual, "Main Hall", nil, "admin-1", active, now, now)
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1`).
		WithArgs("evt-1").
		WillReturnRows(eventRows("evt-1", true))

	event, err := repo.FindByID(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Equal(t, "evt-1", event.ID)
	require.True(t, event.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListScoped(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM events WHERE is_active = TRUE AND created_by = \$1 ORDER BY event_date DESC`).
		WithArgs("admin-1").
		WillReturnRows(eventRows("evt-1", true))

	events, err := repo.List(context.Background(), models.EventFilter{ActiveOnly: true, CreatedBy: "admin-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(`UPDATE events SET is_active = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("evt-1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), "evt-1", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCountUpcoming(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM events WHERE is_active = TRUE AND event_date > \$1 AND created_by = \$2`).
		WithArgs(now, "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountUpcoming(context.Background(), "admin-1", now)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
