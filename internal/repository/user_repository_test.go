package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Pyrogramic/test-event-website/internal/models"
)

func TestUserRepositoryFindByUserID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "password_hash", "role", "is_active", "created_by", "last_login", "created_at", "updated_at"}).
		AddRow("u-1", "owner", "hash", models.RoleOwner, true, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE user_id = \$1 LIMIT 1`).
		WithArgs("owner").
		WillReturnRows(rows)

	user, err := repo.FindByUserID(context.Background(), "owner")
	require.NoError(t, err)
	require.Equal(t, models.RoleOwner, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryToggleActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`UPDATE users SET is_active = NOT is_active, updated_at = \$2 WHERE id = \$1 AND role = \$3 RETURNING is_active`).
		WithArgs("u-2", sqlmock.AnyArg(), models.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))

	active, err := repo.ToggleActive(context.Background(), "u-2")
	require.NoError(t, err)
	require.False(t, active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryToggleActiveMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`UPDATE users SET is_active = NOT is_active`).
		WithArgs("nope", sqlmock.AnyArg(), models.RoleAdmin).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ToggleActive(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
