package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type mockAuthRepo struct {
	users          map[string]models.User // keyed by user_id
	lastLoginCalls int
}

func (m *mockAuthRepo) FindByUserID(ctx context.Context, userID string) (*models.User, error) {
	if u, ok := m.users[userID]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginCalls++
	return nil
}

func authFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2x"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &mockAuthRepo{users: map[string]models.User{
		"owner":    {ID: "usr-1", UserID: "owner", PasswordHash: string(hash), Role: models.RoleOwner, IsActive: true},
		"disabled": {ID: "usr-2", UserID: "disabled", PasswordHash: string(hash), Role: models.RoleAdmin, IsActive: false},
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "test"})
	return svc, repo
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, repo := authFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{UserID: "owner", Password: "hunter2x"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleOwner, resp.User.Role)
	assert.Equal(t, 1, repo.lastLoginCalls)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UserID)
	assert.Equal(t, models.RoleOwner, claims.Role)
	assert.True(t, claims.Scope().IsOwner())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{UserID: "owner", Password: "wrongpass"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{UserID: "nobody", Password: "hunter2x"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{UserID: "disabled", Password: "hunter2x"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	svc, _ := authFixture(t)
	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{Secret: "other-secret", Expiration: time.Hour})

	resp, err := other.Login(context.Background(), models.LoginRequest{UserID: "x", Password: "x"})
	require.Error(t, err)
	assert.Nil(t, resp)

	_, err = svc.ValidateToken("not-a-token")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestValidateTokenRejectsExpiredToken(t *testing.T) {
	svc, _ := authFixture(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), models.LoginRequest{UserID: "owner", Password: "hunter2x"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(resp.Token)
	require.Error(t, err)
}

func TestVerifyReportsDeactivatedAccount(t *testing.T) {
	svc, repo := authFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{UserID: "owner", Password: "hunter2x"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)

	info, err := svc.Verify(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "owner", info.UserID)

	u := repo.users["owner"]
	u.IsActive = false
	repo.users["owner"] = u

	_, err = svc.Verify(context.Background(), claims)
	require.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}
