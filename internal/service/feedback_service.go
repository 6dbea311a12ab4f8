package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type feedbackRepo interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	ListByReport(ctx context.Context, reportID string) ([]models.FeedbackDetail, error)
	CreateHOD(ctx context.Context, feedback *models.HODFeedback) error
	ListHODByReport(ctx context.Context, reportID string) ([]models.HODFeedbackDetail, error)
}

type feedbackReportRepo interface {
	FindByID(ctx context.Context, id string) (*models.Report, error)
	FindDetail(ctx context.Context, id string) (*models.ReportDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	AdvanceStage(ctx context.Context, id string, stage models.ReportStage) error
}

type feedbackNotifier interface {
	FeedbackGiven(report *models.Report, studentEmail, studentName, comment string, action models.FeedbackAction)
}

// PostFeedbackRequest describes a supervisor review. ActionTaken is free-form:
// unrecognized actions are stored as given and resolve to feedback_given.
type PostFeedbackRequest struct {
	Comment     string                `json:"comment" validate:"required"`
	ActionTaken models.FeedbackAction `json:"action_taken" validate:"required"`
}

// PostHODFeedbackRequest describes a head-of-department comment.
type PostHODFeedbackRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// FeedbackService maps supervisor review actions onto report status and
// drives stage progression.
type FeedbackService struct {
	feedback  feedbackRepo
	reports   feedbackReportRepo
	activity  activityWriter
	notifier  feedbackNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService creates a service instance.
func NewFeedbackService(feedback feedbackRepo, reports feedbackReportRepo, activity activityWriter, notifier feedbackNotifier, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		feedback:  feedback,
		reports:   reports,
		activity:  activity,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// PostFeedback records an immutable feedback row and applies the action
// transition to the report status. The student notification is dispatched
// fire-and-forget after the status change commits.
func (s *FeedbackService) PostFeedback(ctx context.Context, reportID string, actor *models.JWTClaims, req PostFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	if strings.TrimSpace(req.Comment) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "feedback comment is required")
	}

	detail, err := s.ownedReport(ctx, reportID, actor)
	if err != nil {
		return nil, err
	}

	feedback := &models.Feedback{
		ReportID:     detail.ID,
		SupervisorID: actor.UserID,
		Comment:      req.Comment,
		ActionTaken:  req.ActionTaken,
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save feedback")
	}

	newStatus := models.StatusForAction(req.ActionTaken)
	if err := s.reports.UpdateStatus(ctx, detail.ID, newStatus); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report status")
	}

	s.recordActivity(ctx, actor, models.ActivityFeedbackGiven, detail.ID, map[string]interface{}{
		"action_taken": req.ActionTaken,
		"new_status":   newStatus,
	})

	if s.notifier != nil {
		s.notifier.FeedbackGiven(&detail.Report, detail.StudentEmail, detail.StudentName, req.Comment, req.ActionTaken)
	}

	return feedback, nil
}

// AdvanceStage moves the report to the next stage in the fixed sequence and
// resets status to pending. A report at final stays untouched.
func (s *FeedbackService) AdvanceStage(ctx context.Context, reportID string, actor *models.JWTClaims) (*models.Report, error) {
	detail, err := s.ownedReport(ctx, reportID, actor)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextStage(detail.ReportStage)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAlreadyFinalStage, "")
	}

	if err := s.reports.AdvanceStage(ctx, detail.ID, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance report stage")
	}

	s.recordActivity(ctx, actor, models.ActivityStageAdvanced, detail.ID, map[string]interface{}{
		"from_stage": detail.ReportStage,
		"to_stage":   next,
	})

	report, err := s.reports.FindByID(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload report")
	}
	return report, nil
}

// PostHODFeedback records a department-head comment. It never changes report
// status; the department ownership check is the only gate.
func (s *FeedbackService) PostHODFeedback(ctx context.Context, reportID string, actor *models.JWTClaims, req PostHODFeedbackRequest) (*models.HODFeedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	detail, err := s.reports.FindDetail(ctx, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	if detail.StudentDepartment != actor.Department {
		return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or outside caller's department")
	}

	feedback := &models.HODFeedback{
		ReportID: detail.ID,
		HODID:    actor.UserID,
		Comment:  req.Comment,
	}
	if err := s.feedback.CreateHOD(ctx, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save hod feedback")
	}

	s.recordActivity(ctx, actor, models.ActivityHODFeedbackGiven, detail.ID, nil)
	return feedback, nil
}

// ListForReport returns both feedback threads for a report.
func (s *FeedbackService) ListForReport(ctx context.Context, reportID string) ([]models.FeedbackDetail, []models.HODFeedbackDetail, error) {
	feedback, err := s.feedback.ListByReport(ctx, reportID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	hodFeedback, err := s.feedback.ListHODByReport(ctx, reportID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hod feedback")
	}
	return feedback, hodFeedback, nil
}

func (s *FeedbackService) ownedReport(ctx context.Context, reportID string, actor *models.JWTClaims) (*models.ReportDetail, error) {
	detail, err := s.reports.FindDetail(ctx, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if detail.SupervisorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
	}
	return detail, nil
}

func (s *FeedbackService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, resourceID string, metadata map[string]interface{}) {
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
		ResourceType: "report",
		ResourceID:   &resourceID,
		Metadata:     payload,
	}); err != nil {
		s.logger.Warn("failed to record feedback activity", zap.Error(err))
	}
}
