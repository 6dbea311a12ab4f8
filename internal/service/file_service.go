package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
)

type fileStore interface {
	Backup(name string) (string, error)
	WriteContent(name string, content []byte) (int64, error)
	ReadContent(name string) ([]byte, error)
	Open(name string) (*os.File, error)
	Stat(name string) (os.FileInfo, error)
}

type fileReportRepo interface {
	FindByID(ctx context.Context, id string) (*models.Report, error)
	UpdateFileSize(ctx context.Context, id string, fileSize int64) error
}

// FileDetail describes a managed report file.
type FileDetail struct {
	ReportID    string `json:"report_id"`
	FileName    string `json:"file_name"`
	StoredName  string `json:"stored_name"`
	Size        int64  `json:"size"`
	Extension   string `json:"extension"`
	Editable    bool   `json:"editable"`
	Previewable bool   `json:"previewable"`
	URL         string `json:"url"`
}

// FileConfig carries the file manager rules. The 50 MB ceiling here is
// independent of the submission path's 5 MB ceiling.
type FileConfig struct {
	MaxFileSizeBytes   int64
	EditableExtensions []string
	PreviewExtensions  []string
}

// FileService is the supervisor-facing file manager for report files:
// download, preview, and in-place content edits with a backup taken before
// every write.
type FileService struct {
	store    fileStore
	reports  fileReportRepo
	activity activityWriter
	config   FileConfig
	logger   *zap.Logger
}

// NewFileService creates a service instance.
func NewFileService(store fileStore, reports fileReportRepo, activity activityWriter, config FileConfig, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	if len(config.EditableExtensions) == 0 {
		config.EditableExtensions = []string{".txt"}
	}
	if len(config.PreviewExtensions) == 0 {
		config.PreviewExtensions = []string{".txt", ".pdf"}
	}
	return &FileService{store: store, reports: reports, activity: activity, config: config, logger: logger}
}

// Info returns file metadata for an accessible report.
func (s *FileService) Info(ctx context.Context, reportID string, actor *models.JWTClaims) (*FileDetail, error) {
	report, err := s.accessibleReport(ctx, reportID, actor)
	if err != nil {
		return nil, err
	}
	return s.detail(report)
}

// Download returns an open read handle plus metadata. The caller owns closing
// the handle.
func (s *FileService) Download(ctx context.Context, reportID string, actor *models.JWTClaims) (*os.File, *FileDetail, error) {
	report, err := s.accessibleReport(ctx, reportID, actor)
	if err != nil {
		return nil, nil, err
	}
	detail, err := s.detail(report)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.store.Open(detail.StoredName)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to open report file")
	}
	return file, detail, nil
}

// Preview returns file bytes for previewable extensions only.
func (s *FileService) Preview(ctx context.Context, reportID string, actor *models.JWTClaims) ([]byte, *FileDetail, error) {
	report, err := s.accessibleReport(ctx, reportID, actor)
	if err != nil {
		return nil, nil, err
	}
	detail, err := s.detail(report)
	if err != nil {
		return nil, nil, err
	}
	if !detail.Previewable {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "file type does not support preview")
	}
	content, err := s.store.ReadContent(detail.StoredName)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to read report file")
	}
	return content, detail, nil
}

// Content returns editable file bytes for the edit form.
func (s *FileService) Content(ctx context.Context, reportID string, actor *models.JWTClaims) (string, *FileDetail, error) {
	report, err := s.accessibleReport(ctx, reportID, actor)
	if err != nil {
		return "", nil, err
	}
	detail, err := s.detail(report)
	if err != nil {
		return "", nil, err
	}
	if !detail.Editable {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "file type does not support content editing")
	}
	content, err := s.store.ReadContent(detail.StoredName)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to read report file")
	}
	return string(content), detail, nil
}

// UpdateContent replaces an editable file's bytes in place. A timestamped
// backup copy is taken before the write and the stored size is refreshed
// afterwards.
func (s *FileService) UpdateContent(ctx context.Context, reportID string, actor *models.JWTClaims, content string) (*FileDetail, error) {
	if int64(len(content)) > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file content exceeds the maximum allowed size")
	}

	report, err := s.accessibleReport(ctx, reportID, actor)
	if err != nil {
		return nil, err
	}
	detail, err := s.detail(report)
	if err != nil {
		return nil, err
	}
	if !detail.Editable {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type does not support content editing")
	}

	backupPath, err := s.store.Backup(detail.StoredName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to back up report file")
	}

	size, err := s.store.WriteContent(detail.StoredName, []byte(content))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to write report file")
	}
	detail.Size = size

	if err := s.reports.UpdateFileSize(ctx, report.ID, size); err != nil {
		s.logger.Warn("failed to refresh stored file size", zap.String("report_id", report.ID), zap.Error(err))
	}

	s.recordActivity(ctx, actor, report.ID, backupPath)
	return detail, nil
}

// accessibleReport loads the report and enforces who may touch its file:
// the submitting student, the assigned supervisor, or an admin.
func (s *FileService) accessibleReport(ctx context.Context, reportID string, actor *models.JWTClaims) (*models.Report, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStudent:
		if report.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
	case models.RoleSupervisor:
		if report.SupervisorID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFoundOrUnauthorized, "report not found or not owned by caller")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot access report files")
	}
	return report, nil
}

func (s *FileService) detail(report *models.Report) (*FileDetail, error) {
	storedName := path.Base(report.FileURL)
	if storedName == "" || storedName == "." || storedName == "/" {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report has no stored file")
	}
	ext := strings.ToLower(path.Ext(storedName))
	detail := &FileDetail{
		ReportID:    report.ID,
		FileName:    report.FileName,
		StoredName:  storedName,
		Size:        report.FileSize,
		Extension:   ext,
		Editable:    containsExt(s.config.EditableExtensions, ext),
		Previewable: containsExt(s.config.PreviewExtensions, ext),
		URL:         report.FileURL,
	}
	if info, err := s.store.Stat(storedName); err == nil {
		detail.Size = info.Size()
	}
	return detail, nil
}

func containsExt(list []string, ext string) bool {
	for _, item := range list {
		if strings.ToLower(item) == ext {
			return true
		}
	}
	return false
}

func (s *FileService) recordActivity(ctx context.Context, actor *models.JWTClaims, reportID, backupPath string) {
	if s.activity == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"backup_path": backupPath})
	if err := s.activity.Create(ctx, &models.ActivityLog{
		UserID:       &actor.UserID,
		Action:       models.ActivityFileEdited,
		ResourceType: "report",
		ResourceID:   &reportID,
		Metadata:     payload,
	}); err != nil {
		s.logger.Warn("failed to record file activity", zap.Error(err))
	}
}
