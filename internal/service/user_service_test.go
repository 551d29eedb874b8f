package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type mockAdminRepo struct {
	existing map[string]models.User // keyed by user_id
	created  *models.User
	toggled  map[string]bool // id -> resulting state
}

func (m *mockAdminRepo) FindByUserID(ctx context.Context, userID string) (*models.User, error) {
	if u, ok := m.existing[userID]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "usr-new"
	m.created = user
	return nil
}

func (m *mockAdminRepo) ListAdmins(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.existing {
		if u.Role == models.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockAdminRepo) ToggleActive(ctx context.Context, id string) (bool, error) {
	state, ok := m.toggled[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	return state, nil
}

func userFixture() (*UserService, *mockAdminRepo) {
	repo := &mockAdminRepo{
		existing: map[string]models.User{
			"admin1": {ID: "usr-2", UserID: "admin1", Role: models.RoleAdmin, IsActive: true},
		},
		toggled: map[string]bool{"usr-2": false},
	}
	return NewUserService(repo, nil, nil), repo
}

func TestCreateAdminOwnerOnly(t *testing.T) {
	svc, _ := userFixture()

	_, err := svc.CreateAdmin(context.Background(), models.AdminScope("usr-2"), CreateAdminRequest{UserID: "admin2", Password: "secret99"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.ListAdmins(context.Background(), models.AdminScope("usr-2"))
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.ToggleAdmin(context.Background(), models.AdminScope("usr-2"), "usr-2")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestCreateAdminHashesPassword(t *testing.T) {
	svc, repo := userFixture()

	user, err := svc.CreateAdmin(context.Background(), models.OwnerScope("usr-1"), CreateAdminRequest{UserID: "admin2", Password: "secret99"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.IsActive)
	require.NotNil(t, user.CreatedBy)
	assert.Equal(t, "usr-1", *user.CreatedBy)

	assert.NotEqual(t, "secret99", repo.created.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("secret99")))
}

func TestCreateAdminRejectsDuplicateUserID(t *testing.T) {
	svc, _ := userFixture()

	_, err := svc.CreateAdmin(context.Background(), models.OwnerScope("usr-1"), CreateAdminRequest{UserID: "admin1", Password: "secret99"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCreateAdminValidatesPayload(t *testing.T) {
	svc, _ := userFixture()

	_, err := svc.CreateAdmin(context.Background(), models.OwnerScope("usr-1"), CreateAdminRequest{UserID: "ab", Password: "short"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestToggleAdminReturnsNewState(t *testing.T) {
	svc, _ := userFixture()

	active, err := svc.ToggleAdmin(context.Background(), models.OwnerScope("usr-1"), "usr-2")
	require.NoError(t, err)
	assert.False(t, active)

	_, err = svc.ToggleAdmin(context.Background(), models.OwnerScope("usr-1"), "usr-missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
