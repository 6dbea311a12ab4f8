package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-workflow-api/internal/middleware"
	"github.com/noah-isme/report-workflow-api/internal/models"
	"github.com/noah-isme/report-workflow-api/internal/service"
	"github.com/noah-isme/report-workflow-api/pkg/storage"
)

type stubFileReportRepo struct {
	report *models.Report
}

func (s *stubFileReportRepo) FindByID(ctx context.Context, id string) (*models.Report, error) {
	return s.report, nil
}

func (s *stubFileReportRepo) UpdateFileSize(ctx context.Context, id string, fileSize int64) error {
	return nil
}

func TestFileHandlerDownloadStreamsAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := storage.NewUploadStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	_, err = store.WriteContent("stored.pdf", []byte("report body"))
	require.NoError(t, err)

	repo := &stubFileReportRepo{report: &models.Report{
		ID:           "report-1",
		StudentID:    "student-1",
		SupervisorID: "supervisor-1",
		Title:        "Thesis Proposal",
		FileName:     "Thesis Proposal.pdf",
		FileURL:      "/uploads/reports/stored.pdf",
		FileSize:     int64(len("report body")),
	}}
	svc := service.NewFileService(store, repo, nil, service.FileConfig{}, nil)
	h := NewFileHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/files/report-1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "report-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "supervisor-1", Role: models.RoleSupervisor})

	h.Download(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "report body", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `"Thesis Proposal.pdf"`)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestFileHandlerDownloadHidesForeignReports(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := storage.NewUploadStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	repo := &stubFileReportRepo{report: &models.Report{
		ID:           "report-1",
		StudentID:    "student-1",
		SupervisorID: "supervisor-1",
		FileURL:      "/uploads/reports/stored.pdf",
	}}
	h := NewFileHandler(service.NewFileService(store, repo, nil, service.FileConfig{}, nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/files/report-1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "report-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "supervisor-2", Role: models.RoleSupervisor})

	h.Download(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
