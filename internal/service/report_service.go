package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type reportRepo interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	FindDetail(ctx context.Context, id string) (*models.ReportDetail, error)
	UpdateOnReupload(ctx context.Context, id, fileURL, fileName string, fileSize int64) error
	ListVersions(ctx context.Context, studentID, title string, stage models.ReportStage) ([]models.Report, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error)
}

type supervisorPicker interface {
	FirstAvailableSupervisor(ctx context.Context) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type uploadStore interface {
	MoveFromTemp(tempPath, originalName string) (name, publicURL string, err error)
	Delete(name string) error
}

type reportNotifier interface {
	ReportSubmitted(report *models.Report, student, supervisor *models.User)
}

// UploadInput describes a received file before it is accepted.
type UploadInput struct {
	OriginalName string
	Size         int64
	TempPath     string
}

// SubmitReportRequest describes a new report submission.
type SubmitReportRequest struct {
	Title string             `json:"title" validate:"required,max=255"`
	Stage models.ReportStage `json:"report_stage" validate:"required"`
}

// ReportConfig carries the submission-path upload rules. The 5 MB ceiling
// here is independent of the file manager's 50 MB ceiling.
type ReportConfig struct {
	MaxFileSizeBytes  int64
	AllowedExtensions []string
}

// ReportService implements report submission, in-place versioning and
// lineage history.
type ReportService struct {
	reports   reportRepo
	users     supervisorPicker
	store     uploadStore
	activity  activityWriter
	notifier  reportNotifier
	config    ReportConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService creates a service instance.
func NewReportService(reports reportRepo, users supervisorPicker, store uploadStore, activity activityWriter, notifier reportNotifier, config ReportConfig, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".pdf", ".doc", ".docx", ".txt"}
	}
	return &ReportService{
		reports:   reports,
		users:     users,
		store:     store,
		activity:  activity,
		notifier:  notifier,
		config:    config,
		validator: validate,
		logger:    logger,
	}
}

// Submit validates the upload, picks the first active supervisor, stores the
// file and creates a version-1 pending report. The picked supervisor is
// independent of the coordinator-managed assignment table.
func (s *ReportService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitReportRequest, upload UploadInput) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if !models.ValidStage(req.Stage) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report stage")
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	supervisor, err := s.users.FirstAvailableSupervisor(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNoSupervisorAvailable, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find supervisor")
	}

	storedName, publicURL, err := s.store.MoveFromTemp(upload.TempPath, upload.OriginalName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, appErrors.ErrStorageFailure.Message)
	}

	report := &models.Report{
		StudentID:    actor.UserID,
		SupervisorID: supervisor.ID,
		Title:        strings.TrimSpace(req.Title),
		ReportStage:  req.Stage,
		FileURL:      publicURL,
		FileName:     upload.OriginalName,
		FileSize:     upload.Size,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		if delErr := s.store.Delete(storedName); delErr != nil {
			s.logger.Warn("failed to clean up stored upload", zap.String("name", storedName), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	s.recordActivity(ctx, actor, models.ActivityReportUploaded, report.ID, map[string]interface{}{
		"title": report.Title,
		"stage": report.ReportStage,
	})

	if s.notifier != nil {
		student := &models.User{ID: actor.UserID, Email: actor.Email, FullName: actor.FullName}
		s.notifier.ReportSubmitted(report, student, supervisor)
	}

	return report, nil
}

// Reupload replaces the file on an owned report whose status allows it. The
// row mutates in place: version+1, status back to pending.
func (s *ReportService) Reupload(ctx context.Context, reportID string, actor *models.JWTClaims, upload UploadInput) (*models.Report, error) {
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if report.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
	}
	if !models.ReuploadAllowed(report.Status) {
		return nil, appErrors.Clone(appErrors.ErrReuploadNotAllowed, "")
	}

	storedName, publicURL, err := s.store.MoveFromTemp(upload.TempPath, upload.OriginalName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, appErrors.ErrStorageFailure.Message)
	}

	if err := s.reports.UpdateOnReupload(ctx, report.ID, publicURL, upload.OriginalName, upload.Size); err != nil {
		if delErr := s.store.Delete(storedName); delErr != nil {
			s.logger.Warn("failed to clean up stored upload", zap.String("name", storedName), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reupload report")
	}

	s.recordActivity(ctx, actor, models.ActivityReportReuploaded, report.ID, map[string]interface{}{
		"title":   report.Title,
		"stage":   report.ReportStage,
		"version": report.Version + 1,
	})

	updated, err := s.reports.FindByID(ctx, report.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload report")
	}
	return updated, nil
}

// History returns the lineage rows for (caller, title, stage) ordered by
// version descending; the first row is the current report.
func (s *ReportService) History(ctx context.Context, actor *models.JWTClaims, title string, stage models.ReportStage) ([]models.Report, error) {
	if strings.TrimSpace(title) == "" || !models.ValidStage(stage) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title and report stage are required")
	}
	reports, err := s.reports.ListVersions(ctx, actor.UserID, title, stage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report history")
	}
	return reports, nil
}

// ListMine returns the caller's reports, newest first.
func (s *ReportService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.Report, error) {
	reports, err := s.reports.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

// List returns review listings scoped to the caller's role.
func (s *ReportService) List(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) ([]models.ReportDetail, int, error) {
	switch actor.Role {
	case models.RoleSupervisor:
		filter.SupervisorID = actor.UserID
	case models.RoleHOD:
		filter.Department = actor.Department
	}
	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, total, nil
}

// Get returns one report with student identity, enforcing role scoping.
func (s *ReportService) Get(ctx context.Context, reportID string, actor *models.JWTClaims) (*models.ReportDetail, error) {
	detail, err := s.reports.FindDetail(ctx, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	switch actor.Role {
	case models.RoleStudent:
		if detail.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
	case models.RoleSupervisor:
		if detail.SupervisorID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
	}
	return detail, nil
}

func (s *ReportService) validateUpload(upload UploadInput) error {
	if upload.OriginalName == "" || upload.TempPath == "" {
		return appErrors.Clone(appErrors.ErrValidation, "report file is required")
	}
	if upload.Size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "report file is empty")
	}
	if upload.Size > s.config.MaxFileSizeBytes {
		return appErrors.Clone(appErrors.ErrValidation, "report file exceeds the maximum allowed size")
	}
	ext := strings.ToLower(filepath.Ext(upload.OriginalName))
	for _, allowed := range s.config.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, "report file type is not allowed")
}

func (s *ReportService) recordActivity(ctx context.Context, actor *models.JWTClaims, action, resourceID string, metadata map[string]interface{}) {
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
		s.logger.Warn("failed to record report activity", zap.Error(err))
	}
}
