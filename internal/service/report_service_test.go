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

type mockActivityWriter struct {
	logs []*models.ActivityLog
	err  error
}

func (m *mockActivityWriter) Create(ctx context.Context, log *models.ActivityLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

type mockReportRepo struct {
	reports        map[string]*models.Report
	createErr      error
	reuploadErr    error
	created        *models.Report
	reuploadedID   string
	reuploadedURL  string
	reuploadedName string
	reuploadedSize int64
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	report.ID = "report-1"
	report.Version = 1
	report.Status = models.StatusPending
	m.created = report
	return nil
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*models.Report, error) {
	report, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *report
	return &copied, nil
}

func (m *mockReportRepo) FindDetail(ctx context.Context, id string) (*models.ReportDetail, error) {
	report, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ReportDetail{Report: *report, StudentName: "Ada Obi", StudentEmail: "ada@example.edu"}, nil
}

func (m *mockReportRepo) UpdateOnReupload(ctx context.Context, id, fileURL, fileName string, fileSize int64) error {
	if m.reuploadErr != nil {
		return m.reuploadErr
	}
	report, ok := m.reports[id]
	if !ok {
		return sql.ErrNoRows
	}
	report.FileURL = fileURL
	report.FileName = fileName
	report.FileSize = fileSize
	report.Version++
	report.Status = models.StatusPending
	m.reuploadedID = id
	m.reuploadedURL = fileURL
	m.reuploadedName = fileName
	m.reuploadedSize = fileSize
	return nil
}

func (m *mockReportRepo) ListVersions(ctx context.Context, studentID, title string, stage models.ReportStage) ([]models.Report, error) {
	var out []models.Report
	for _, report := range m.reports {
		if report.StudentID == studentID && report.Title == title && report.ReportStage == stage {
			out = append(out, *report)
		}
	}
	return out, nil
}

func (m *mockReportRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Report, error) {
	var out []models.Report
	for _, report := range m.reports {
		if report.StudentID == studentID {
			out = append(out, *report)
		}
	}
	return out, nil
}

func (m *mockReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error) {
	return nil, 0, nil
}

type mockSupervisorPicker struct {
	supervisor *models.User
	err        error
}

func (m *mockSupervisorPicker) FirstAvailableSupervisor(ctx context.Context) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.supervisor, nil
}

func (m *mockSupervisorPicker) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.supervisor, nil
}

type mockUploadStore struct {
	moveErr error
	moved   []string
	deleted []string
}

func (m *mockUploadStore) MoveFromTemp(tempPath, originalName string) (string, string, error) {
	if m.moveErr != nil {
		return "", "", m.moveErr
	}
	m.moved = append(m.moved, tempPath)
	return "stored.pdf", "/uploads/reports/stored.pdf", nil
}

func (m *mockUploadStore) Delete(name string) error {
	m.deleted = append(m.deleted, name)
	return nil
}

type mockReportNotifier struct {
	submitted int
}

func (m *mockReportNotifier) ReportSubmitted(report *models.Report, student, supervisor *models.User) {
	m.submitted++
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent, Email: "ada@example.edu", FullName: "Ada Obi"}
}

func newReportService(repo *mockReportRepo, picker *mockSupervisorPicker, store *mockUploadStore, notifier *mockReportNotifier) *ReportService {
	return NewReportService(repo, picker, store, &mockActivityWriter{}, notifier, ReportConfig{}, nil, nil)
}

func TestReportServiceSubmitAssignsFirstAvailableSupervisor(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{}}
	picker := &mockSupervisorPicker{supervisor: &models.User{ID: "supervisor-1", Email: "sup@example.edu", FullName: "Dr. Bello"}}
	store := &mockUploadStore{}
	notifier := &mockReportNotifier{}
	svc := newReportService(repo, picker, store, notifier)

	report, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{
		Title: "Thesis Proposal",
		Stage: models.StageProgress1,
	}, UploadInput{OriginalName: "draft.pdf", Size: 2048, TempPath: "/tmp/draft"})

	require.NoError(t, err)
	assert.Equal(t, "supervisor-1", report.SupervisorID)
	assert.Equal(t, 1, report.Version)
	assert.Equal(t, models.StatusPending, report.Status)
	assert.Equal(t, "/uploads/reports/stored.pdf", report.FileURL)
	assert.Equal(t, 1, notifier.submitted)
}

func TestReportServiceSubmitNoSupervisorAvailable(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{}}
	picker := &mockSupervisorPicker{err: sql.ErrNoRows}
	store := &mockUploadStore{}
	svc := newReportService(repo, picker, store, &mockReportNotifier{})

	_, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{
		Title: "Thesis Proposal",
		Stage: models.StageProgress1,
	}, UploadInput{OriginalName: "draft.pdf", Size: 2048, TempPath: "/tmp/draft"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSupervisorAvailable.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.moved)
}

func TestReportServiceSubmitRejectsOversizeFile(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{}}
	picker := &mockSupervisorPicker{supervisor: &models.User{ID: "supervisor-1"}}
	svc := newReportService(repo, picker, &mockUploadStore{}, &mockReportNotifier{})

	_, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{
		Title: "Thesis Proposal",
		Stage: models.StageProgress1,
	}, UploadInput{OriginalName: "draft.pdf", Size: 6 * 1024 * 1024, TempPath: "/tmp/draft"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSubmitRejectsDisallowedExtension(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{}}
	picker := &mockSupervisorPicker{supervisor: &models.User{ID: "supervisor-1"}}
	svc := newReportService(repo, picker, &mockUploadStore{}, &mockReportNotifier{})

	_, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{
		Title: "Thesis Proposal",
		Stage: models.StageProgress1,
	}, UploadInput{OriginalName: "draft.exe", Size: 2048, TempPath: "/tmp/draft"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSubmitCleansUpStoredFileWhenCreateFails(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{}, createErr: assert.AnError}
	picker := &mockSupervisorPicker{supervisor: &models.User{ID: "supervisor-1"}}
	store := &mockUploadStore{}
	svc := newReportService(repo, picker, store, &mockReportNotifier{})

	_, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{
		Title: "Thesis Proposal",
		Stage: models.StageProgress1,
	}, UploadInput{OriginalName: "draft.pdf", Size: 2048, TempPath: "/tmp/draft"})

	require.Error(t, err)
	assert.Equal(t, []string{"stored.pdf"}, store.deleted)
}

func TestReportServiceReuploadIncrementsVersionInPlace(t *testing.T) {
	for _, status := range []models.ReportStatus{models.StatusFeedbackGiven, models.StatusRejected} {
		repo := &mockReportRepo{reports: map[string]*models.Report{
			"report-1": {ID: "report-1", StudentID: "student-1", Title: "Thesis Proposal", ReportStage: models.StageProgress1, Version: 2, Status: status},
		}}
		svc := newReportService(repo, &mockSupervisorPicker{}, &mockUploadStore{}, &mockReportNotifier{})

		updated, err := svc.Reupload(context.Background(), "report-1", studentClaims(), UploadInput{
			OriginalName: "revised.pdf", Size: 4096, TempPath: "/tmp/revised",
		})

		require.NoError(t, err, "status %s should allow reupload", status)
		assert.Equal(t, "report-1", updated.ID)
		assert.Equal(t, 3, updated.Version)
		assert.Equal(t, models.StatusPending, updated.Status)
	}
}

func TestReportServiceReuploadBlockedByStatus(t *testing.T) {
	for _, status := range []models.ReportStatus{models.StatusPending, models.StatusApproved} {
		repo := &mockReportRepo{reports: map[string]*models.Report{
			"report-1": {ID: "report-1", StudentID: "student-1", Version: 1, Status: status},
		}}
		store := &mockUploadStore{}
		svc := newReportService(repo, &mockSupervisorPicker{}, store, &mockReportNotifier{})

		_, err := svc.Reupload(context.Background(), "report-1", studentClaims(), UploadInput{
			OriginalName: "revised.pdf", Size: 4096, TempPath: "/tmp/revised",
		})

		require.Error(t, err, "status %s should block reupload", status)
		assert.Equal(t, appErrors.ErrReuploadNotAllowed.Code, appErrors.FromError(err).Code)
		assert.Empty(t, store.moved)
	}
}

func TestReportServiceReuploadHidesForeignReports(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{
		"report-1": {ID: "report-1", StudentID: "someone-else", Version: 1, Status: models.StatusRejected},
	}}
	svc := newReportService(repo, &mockSupervisorPicker{}, &mockUploadStore{}, &mockReportNotifier{})

	_, err := svc.Reupload(context.Background(), "report-1", studentClaims(), UploadInput{
		OriginalName: "revised.pdf", Size: 4096, TempPath: "/tmp/revised",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFoundOrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestReportServiceHistoryRequiresTitleAndStage(t *testing.T) {
	svc := newReportService(&mockReportRepo{reports: map[string]*models.Report{}}, &mockSupervisorPicker{}, &mockUploadStore{}, &mockReportNotifier{})

	_, err := svc.History(context.Background(), studentClaims(), "", models.StageProgress1)
	require.Error(t, err)

	_, err = svc.History(context.Background(), studentClaims(), "Thesis Proposal", models.ReportStage("bogus"))
	require.Error(t, err)
}

func TestReportServiceGetScopesByRole(t *testing.T) {
	repo := &mockReportRepo{reports: map[string]*models.Report{
		"report-1": {ID: "report-1", StudentID: "student-1", SupervisorID: "supervisor-1", Status: models.StatusPending},
	}}
	svc := newReportService(repo, &mockSupervisorPicker{}, &mockUploadStore{}, &mockReportNotifier{})

	_, err := svc.Get(context.Background(), "report-1", studentClaims())
	require.NoError(t, err)

	otherStudent := &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent}
	_, err = svc.Get(context.Background(), "report-1", otherStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFoundOrUnauthorized.Code, appErrors.FromError(err).Code)

	otherSupervisor := &models.JWTClaims{UserID: "supervisor-2", Role: models.RoleSupervisor}
	_, err = svc.Get(context.Background(), "report-1", otherSupervisor)
	require.Error(t, err)
}
