package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type assignmentRepo interface {
	FindActiveByStudent(ctx context.Context, studentID string) (*models.Assignment, error)
	Replace(ctx context.Context, assignment *models.Assignment) error
	DeactivateOwned(ctx context.Context, assignmentID, coordinatorID string) error
	ListActive(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	ListHistory(ctx context.Context, level string, limit int) ([]models.AssignmentDetail, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateAssignmentRequest describes an assignment payload.
type CreateAssignmentRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	SupervisorID string `json:"supervisor_id" validate:"required"`
}

// AssignmentService manages the student-supervisor assignment lifecycle. The
// single-active-assignment invariant lives here: assigning always supersedes
// any prior active row.
type AssignmentService struct {
	assignments assignmentRepo
	users       userReader
	activity    activityWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService creates a service instance.
func NewAssignmentService(assignments assignmentRepo, users userReader, activity activityWriter, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		users:       users,
		activity:    activity,
		validator:   validate,
		logger:      logger,
	}
}

// Assign links a student to a supervisor, superseding any active assignment.
// No capacity check: the per-supervisor capacity of 5 is a dashboard hint,
// not an invariant.
func (s *AssignmentService) Assign(ctx context.Context, req CreateAssignmentRequest, actor *models.JWTClaims) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target user is not a student")
	}

	supervisor, err := s.users.FindByID(ctx, req.SupervisorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	if supervisor.Role != models.RoleSupervisor || !supervisor.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target user is not an active supervisor")
	}

	assignment := &models.Assignment{
		StudentID:          req.StudentID,
		SupervisorID:       req.SupervisorID,
		LevelCoordinatorID: actor.UserID,
	}
	if err := s.assignments.Replace(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.recordActivity(ctx, actor, models.ActivityStudentAssigned, assignment.ID, map[string]string{
		"student_id":    req.StudentID,
		"supervisor_id": req.SupervisorID,
	})

	return assignment, nil
}

// Unassign deactivates an assignment the caller created. Ownership is
// enforced by the conditional update alone: a zero row count surfaces as
// NotFoundOrUnauthorized without revealing which condition failed.
func (s *AssignmentService) Unassign(ctx context.Context, assignmentID string, actor *models.JWTClaims) error {
	if err := s.assignments.DeactivateOwned(ctx, assignmentID, actor.UserID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "assignment not found or not owned by caller")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign student")
	}

	s.recordActivity(ctx, actor, models.ActivityStudentUnassign, assignmentID, nil)
	return nil
}

// ListActive returns active assignments. Coordinators only see their level.
func (s *AssignmentService) ListActive(ctx context.Context, actor *models.JWTClaims) ([]models.AssignmentDetail, error) {
	filter := models.AssignmentFilter{}
	if actor.Role == models.RoleLevelCoordinator {
		filter.Level = actor.Level
	}
	if actor.Role == models.RoleSupervisor {
		filter.SupervisorID = actor.UserID
	}
	assignments, err := s.assignments.ListActive(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// History returns the recent reassignment timeline for the caller's level.
func (s *AssignmentService) History(ctx context.Context, actor *models.JWTClaims) ([]models.AssignmentDetail, error) {
	level := ""
	if actor.Role == models.RoleLevelCoordinator {
		level = actor.Level
	}
	history, err := s.assignments.ListHistory(ctx, level, 50)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignment history")
	}
	return history, nil
}

func (s *AssignmentService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, resourceID string, metadata map[string]string) {
	if s.activity == nil {
		return
	}
	var payload []byte
	if metadata != nil {
		payload, _ = json.Marshal(metadata)
	}
	if err := s.activity.Create(ctx, &models.ActivityLog{
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: "assignment",
		ResourceID:   &resourceID,
		Metadata:     payload,
	}); err != nil {
		s.logger.Warn("failed to record assignment activity", zap.Error(err))
	}
}
