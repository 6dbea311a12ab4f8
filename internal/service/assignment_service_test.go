package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type mockAssignmentRepo struct {
	replaced       *models.Assignment
	deactivateErr  error
	deactivatedID  string
	deactivatedBy  string
	listFilter     models.AssignmentFilter
	historyLevel   string
	historyResults []models.AssignmentDetail
}

func (m *mockAssignmentRepo) FindActiveByStudent(ctx context.Context, studentID string) (*models.Assignment, error) {
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) Replace(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = "assignment-1"
	assignment.Active = true
	m.replaced = assignment
	return nil
}

func (m *mockAssignmentRepo) DeactivateOwned(ctx context.Context, assignmentID, coordinatorID string) error {
	if m.deactivateErr != nil {
		return m.deactivateErr
	}
	m.deactivatedID = assignmentID
	m.deactivatedBy = coordinatorID
	return nil
}

func (m *mockAssignmentRepo) ListActive(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	m.listFilter = filter
	return nil, nil
}

func (m *mockAssignmentRepo) ListHistory(ctx context.Context, level string, limit int) ([]models.AssignmentDetail, error) {
	m.historyLevel = level
	return m.historyResults, nil
}

type mockUserReader struct {
	users map[string]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func coordinatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "coordinator-1", Role: models.RoleLevelCoordinator, Level: "400"}
}

func newAssignmentService(repo *mockAssignmentRepo, users *mockUserReader) *AssignmentService {
	return NewAssignmentService(repo, users, &mockActivityWriter{}, nil, nil)
}

func TestAssignmentServiceAssignSupersedesActiveRow(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserReader{users: map[string]*models.User{
		"student-1":    {ID: "student-1", Role: models.RoleStudent, Active: true},
		"supervisor-1": {ID: "supervisor-1", Role: models.RoleSupervisor, Active: true},
	}}
	svc := newAssignmentService(repo, users)

	assignment, err := svc.Assign(context.Background(), CreateAssignmentRequest{
		StudentID:    "student-1",
		SupervisorID: "supervisor-1",
	}, coordinatorClaims())

	require.NoError(t, err)
	assert.True(t, assignment.Active)
	assert.Equal(t, "coordinator-1", assignment.LevelCoordinatorID)
	require.NotNil(t, repo.replaced)
	assert.Equal(t, "student-1", repo.replaced.StudentID)
}

func TestAssignmentServiceAssignRejectsNonStudentTarget(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserReader{users: map[string]*models.User{
		"student-1":    {ID: "student-1", Role: models.RoleSupervisor, Active: true},
		"supervisor-1": {ID: "supervisor-1", Role: models.RoleSupervisor, Active: true},
	}}
	svc := newAssignmentService(repo, users)

	_, err := svc.Assign(context.Background(), CreateAssignmentRequest{
		StudentID:    "student-1",
		SupervisorID: "supervisor-1",
	}, coordinatorClaims())

	require.Error(t, err)
	assert.Nil(t, repo.replaced)
}

func TestAssignmentServiceAssignRejectsInactiveSupervisor(t *testing.T) {
	repo := &mockAssignmentRepo{}
	users := &mockUserReader{users: map[string]*models.User{
		"student-1":    {ID: "student-1", Role: models.RoleStudent, Active: true},
		"supervisor-1": {ID: "supervisor-1", Role: models.RoleSupervisor, Active: false},
	}}
	svc := newAssignmentService(repo, users)

	_, err := svc.Assign(context.Background(), CreateAssignmentRequest{
		StudentID:    "student-1",
		SupervisorID: "supervisor-1",
	}, coordinatorClaims())

	require.Error(t, err)
	assert.Nil(t, repo.replaced)
}

func TestAssignmentServiceUnassignUsesCallerAsOwner(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentService(repo, &mockUserReader{})

	require.NoError(t, svc.Unassign(context.Background(), "assignment-1", coordinatorClaims()))
	assert.Equal(t, "assignment-1", repo.deactivatedID)
	assert.Equal(t, "coordinator-1", repo.deactivatedBy)
}

func TestAssignmentServiceUnassignHidesForeignRows(t *testing.T) {
	repo := &mockAssignmentRepo{deactivateErr: sql.ErrNoRows}
	svc := newAssignmentService(repo, &mockUserReader{})

	err := svc.Unassign(context.Background(), "assignment-1", coordinatorClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFoundOrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceListActiveScopesByRole(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentService(repo, &mockUserReader{})

	_, err := svc.ListActive(context.Background(), coordinatorClaims())
	require.NoError(t, err)
	assert.Equal(t, "400", repo.listFilter.Level)

	supervisor := &models.JWTClaims{UserID: "supervisor-1", Role: models.RoleSupervisor}
	_, err = svc.ListActive(context.Background(), supervisor)
	require.NoError(t, err)
	assert.Equal(t, "supervisor-1", repo.listFilter.SupervisorID)
}
