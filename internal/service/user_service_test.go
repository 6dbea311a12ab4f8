package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	emails    map[string]bool
	created   *models.User
	updated   *models.User
	deletedID string
	deleteErr error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	m.created = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.updated = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{}, emails: map[string]bool{}}
	svc := NewUserService(repo, &mockActivityWriter{}, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:      "New.Student@Example.EDU",
		Password:   "secret password",
		FullName:   "Ngozi Eze",
		Role:       models.RoleStudent,
		Department: "Computer Science",
	}, adminClaims())

	require.NoError(t, err)
	assert.Equal(t, "new.student@example.edu", repo.created.Email)
	assert.True(t, repo.created.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("secret password")))
	assert.Empty(t, user.PasswordHash, "hash must not leak in responses")
}

func TestUserServiceCreateRejectsDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{}, emails: map[string]bool{"taken@example.edu": true}}
	svc := NewUserService(repo, &mockActivityWriter{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:      "taken@example.edu",
		Password:   "secret password",
		FullName:   "Ngozi Eze",
		Role:       models.RoleStudent,
		Department: "Computer Science",
	}, adminClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestUserServiceUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "ada@example.edu", FullName: "Ada Obi", Role: models.RoleStudent, Department: "Computer Science", Active: true},
	}}
	svc := NewUserService(repo, &mockActivityWriter{}, nil, nil)

	inactive := false
	updated, err := svc.Update(context.Background(), "user-1", UpdateUserRequest{Active: &inactive}, adminClaims())

	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, "Ada Obi", updated.FullName)
	assert.Equal(t, models.RoleStudent, updated.Role)
}

func TestUserServiceDeleteRejectsSelf(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	svc := NewUserService(repo, &mockActivityWriter{}, nil, nil)

	err := svc.Delete(context.Background(), "admin-1", adminClaims())

	require.Error(t, err)
	assert.Empty(t, repo.deletedID)
}

func TestUserServiceDeleteMissingUser(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{}, deleteErr: sql.ErrNoRows}
	svc := NewUserService(repo, &mockActivityWriter{}, nil, nil)

	err := svc.Delete(context.Background(), "ghost", adminClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
