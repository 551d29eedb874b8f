package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type adminUserRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	ListAdmins(ctx context.Context) ([]models.User, error)
	ToggleActive(ctx context.Context, id string) (bool, error)
}

// CreateAdminRequest describes an admin provisioning payload.
type CreateAdminRequest struct {
	UserID   string `json:"user_id" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserService manages admin accounts. All operations are owner-only.
type UserService struct {
	repo      adminUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo adminUserRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// CreateAdmin provisions a new admin account.
func (s *UserService) CreateAdmin(ctx context.Context, scope models.Scope, req CreateAdminRequest) (*models.User, error) {
	if !scope.IsOwner() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	if _, err := s.repo.FindByUserID(ctx, req.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user id already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	actorID := scope.ActorID()
	user := &models.User{
		UserID:       req.UserID,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedBy:    &actorID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}

	s.logger.Info("admin created", zap.String("admin_id", user.ID), zap.String("created_by", actorID))
	return user, nil
}

// ListAdmins returns all admin accounts.
func (s *UserService) ListAdmins(ctx context.Context, scope models.Scope) ([]models.User, error) {
	if !scope.IsOwner() {
		return nil, appErrors.ErrForbidden
	}
	users, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admins")
	}
	return users, nil
}

// ToggleAdmin flips an admin's active flag and returns the new state.
func (s *UserService) ToggleAdmin(ctx context.Context, scope models.Scope, id string) (bool, error) {
	if !scope.IsOwner() {
		return false, appErrors.ErrForbidden
	}
	active, err := s.repo.ToggleActive(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle admin")
	}
	return active, nil
}
