package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type userRepo interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest describes a new account created by an admin.
type CreateUserRequest struct {
	Email              string          `json:"email" validate:"required,email"`
	Password           string          `json:"password" validate:"required,min=8"`
	FullName           string          `json:"full_name" validate:"required,max=255"`
	Role               models.UserRole `json:"role" validate:"required,oneof=student supervisor level_coordinator hod admin"`
	Department         string          `json:"department" validate:"required"`
	Level              *string         `json:"level,omitempty"`
	RegistrationNumber *string         `json:"registration_number,omitempty"`
}

// UpdateUserRequest carries the mutable account fields. Pointers distinguish
// omitted fields from explicit zero values.
type UpdateUserRequest struct {
	FullName           *string          `json:"full_name,omitempty" validate:"omitempty,max=255"`
	Role               *models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=student supervisor level_coordinator hod admin"`
	Department         *string          `json:"department,omitempty"`
	Level              *string          `json:"level,omitempty"`
	RegistrationNumber *string          `json:"registration_number,omitempty"`
	Active             *bool            `json:"is_active,omitempty"`
}

// UserService implements admin account management.
type UserService struct {
	users     userRepo
	activity  activityWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates a service instance.
func NewUserService(users userRepo, activity activityWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, activity: activity, validator: validate, logger: logger}
}

// Create registers a new account with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actor *models.JWTClaims) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:              email,
		PasswordHash:       string(hash),
		FullName:           strings.TrimSpace(req.FullName),
		Role:               req.Role,
		Department:         req.Department,
		Level:              req.Level,
		RegistrationNumber: req.RegistrationNumber,
		Active:             true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.recordActivity(ctx, actor, models.ActivityUserCreated, user.ID, map[string]string{"role": string(user.Role)})

	out := *user
	out.PasswordHash = ""
	return &out, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	user.PasswordHash = ""
	return user, nil
}

// List returns accounts matching the filter with a total count.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, total, nil
}

// Update applies the provided fields to an account.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actor *models.JWTClaims) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	if req.Level != nil {
		user.Level = req.Level
	}
	if req.RegistrationNumber != nil {
		user.RegistrationNumber = req.RegistrationNumber
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.recordActivity(ctx, actor, models.ActivityUserUpdated, user.ID, nil)
	user.PasswordHash = ""
	return user, nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.recordActivity(ctx, actor, models.ActivityUserDeleted, id, nil)
	return nil
}

func (s *UserService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, resourceID string, metadata map[string]string) {
	if s.activity == nil || actor == nil {
		return
	}
	var payload []byte
	if metadata != nil {
		payload, _ = json.Marshal(metadata)
	}
	if err := s.activity.Create(ctx, &models.ActivityLog{
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: "user",
		ResourceID:   &resourceID,
		Metadata:     payload,
	}); err != nil {
		s.logger.Warn("failed to record user activity", zap.Error(err))
	}
}
