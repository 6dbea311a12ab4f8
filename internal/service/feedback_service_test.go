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

type mockFeedbackRepo struct {
	feedback    []*models.Feedback
	hodFeedback []*models.HODFeedback
}

func (m *mockFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	feedback.ID = "feedback-1"
	m.feedback = append(m.feedback, feedback)
	return nil
}

func (m *mockFeedbackRepo) ListByReport(ctx context.Context, reportID string) ([]models.FeedbackDetail, error) {
	return nil, nil
}

func (m *mockFeedbackRepo) CreateHOD(ctx context.Context, feedback *models.HODFeedback) error {
	feedback.ID = "hod-feedback-1"
	m.hodFeedback = append(m.hodFeedback, feedback)
	return nil
}

func (m *mockFeedbackRepo) ListHODByReport(ctx context.Context, reportID string) ([]models.HODFeedbackDetail, error) {
	return nil, nil
}

type mockFeedbackReportRepo struct {
	detail        *models.ReportDetail
	statusUpdates map[string]models.ReportStatus
	stageUpdates  map[string]models.ReportStage
}

func (m *mockFeedbackReportRepo) FindByID(ctx context.Context, id string) (*models.Report, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := m.detail.Report
	if stage, ok := m.stageUpdates[id]; ok {
		copied.ReportStage = stage
		copied.Status = models.StatusPending
	}
	return &copied, nil
}

func (m *mockFeedbackReportRepo) FindDetail(ctx context.Context, id string) (*models.ReportDetail, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockFeedbackReportRepo) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = map[string]models.ReportStatus{}
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockFeedbackReportRepo) AdvanceStage(ctx context.Context, id string, stage models.ReportStage) error {
	if m.stageUpdates == nil {
		m.stageUpdates = map[string]models.ReportStage{}
	}
	m.stageUpdates[id] = stage
	return nil
}

type mockFeedbackNotifier struct {
	notified int
}

func (m *mockFeedbackNotifier) FeedbackGiven(report *models.Report, studentEmail, studentName, comment string, action models.FeedbackAction) {
	m.notified++
}

func supervisorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "supervisor-1", Role: models.RoleSupervisor, Department: "Computer Science"}
}

func supervisedReport(stage models.ReportStage) *models.ReportDetail {
	return &models.ReportDetail{
		Report: models.Report{
			ID:           "report-1",
			StudentID:    "student-1",
			SupervisorID: "supervisor-1",
			Title:        "Thesis Proposal",
			ReportStage:  stage,
			Status:       models.StatusPending,
		},
		StudentName:       "Ada Obi",
		StudentEmail:      "ada@example.edu",
		StudentDepartment: "Computer Science",
	}
}

func TestFeedbackServiceActionTransitions(t *testing.T) {
	cases := []struct {
		action models.FeedbackAction
		status models.ReportStatus
	}{
		{models.ActionMinorChanges, models.StatusApproved},
		{models.ActionNoAction, models.StatusApproved},
		{models.ActionRevise, models.StatusRejected},
		{models.ActionMeetDiscuss, models.StatusFeedbackGiven},
	}

	for _, tc := range cases {
		reports := &mockFeedbackReportRepo{detail: supervisedReport(models.StageProgress1)}
		notifier := &mockFeedbackNotifier{}
		svc := NewFeedbackService(&mockFeedbackRepo{}, reports, &mockActivityWriter{}, notifier, nil, nil)

		feedback, err := svc.PostFeedback(context.Background(), "report-1", supervisorClaims(), PostFeedbackRequest{
			Comment:     "see annotations",
			ActionTaken: tc.action,
		})

		require.NoError(t, err, "action %s", tc.action)
		assert.Equal(t, tc.status, reports.statusUpdates["report-1"], "action %s", tc.action)
		assert.Equal(t, tc.action, feedback.ActionTaken)
		assert.Equal(t, 1, notifier.notified)
	}
}

func TestFeedbackServiceUnknownActionFallsBackToFeedbackGiven(t *testing.T) {
	reports := &mockFeedbackReportRepo{detail: supervisedReport(models.StageProgress1)}
	repo := &mockFeedbackRepo{}
	notifier := &mockFeedbackNotifier{}
	svc := NewFeedbackService(repo, reports, &mockActivityWriter{}, notifier, nil, nil)

	feedback, err := svc.PostFeedback(context.Background(), "report-1", supervisorClaims(), PostFeedbackRequest{
		Comment:     "please see me",
		ActionTaken: models.FeedbackAction("approved_with_comments"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.FeedbackAction("approved_with_comments"), feedback.ActionTaken)
	assert.Equal(t, models.StatusFeedbackGiven, reports.statusUpdates["report-1"])
	require.Len(t, repo.feedback, 1)
	assert.Equal(t, 1, notifier.notified)
}

func TestFeedbackServiceRejectsUnsupervisedReport(t *testing.T) {
	reports := &mockFeedbackReportRepo{detail: supervisedReport(models.StageProgress1)}
	reports.detail.SupervisorID = "supervisor-2"
	svc := NewFeedbackService(&mockFeedbackRepo{}, reports, &mockActivityWriter{}, &mockFeedbackNotifier{}, nil, nil)

	_, err := svc.PostFeedback(context.Background(), "report-1", supervisorClaims(), PostFeedbackRequest{
		Comment:     "see annotations",
		ActionTaken: models.ActionRevise,
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFoundOrUnauthorized.Code, appErrors.FromError(err).Code)
	assert.Empty(t, reports.statusUpdates)
}

func TestFeedbackServiceRejectsMissingAction(t *testing.T) {
	reports := &mockFeedbackReportRepo{detail: supervisedReport(models.StageProgress1)}
	svc := NewFeedbackService(&mockFeedbackRepo{}, reports, &mockActivityWriter{}, &mockFeedbackNotifier{}, nil, nil)

	_, err := svc.PostFeedback(context.Background(), "report-1", supervisorClaims(), PostFeedbackRequest{
		Comment: "see annotations",
	})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, reports.statusUpdates)
}

func TestFeedbackServiceAdvanceStageWalksSequence(t *testing.T) {
	cases := []struct {
		from models.ReportStage
		to   models.ReportStage
	}{
		{models.StageProgress1, models.StageProgress2},
		{models.StageProgress2, models.StageProgress3},
		{models.StageProgress3, models.StageFinal},
	}

	for _, tc := range cases {
		reports := &mockFeedbackReportRepo{detail: supervisedReport(tc.from)}
		svc := NewFeedbackService(&mockFeedbackRepo{}, reports, &mockActivityWriter{}, &mockFeedbackNotifier{}, nil, nil)

		report, err := svc.AdvanceStage(context.Background(), "report-1", supervisorClaims())
		require.NoError(t, err, "stage %s", tc.from)
		assert.Equal(t, tc.to, reports.stageUpdates["report-1"])
		assert.Equal(t, tc.to, report.ReportStage)
		assert.Equal(t, models.StatusPending, report.Status)
	}
}

func TestFeedbackServiceAdvanceStageRejectsFinal(t *testing.T) {
	reports := &mockFeedbackReportRepo{detail: supervisedReport(models.StageFinal)}
	svc := NewFeedbackService(&mockFeedbackRepo{}, reports, &mockActivityWriter{}, &mockFeedbackNotifier{}, nil, nil)

	_, err := svc.AdvanceStage(context.Background(), "report-1", supervisorClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFinalStage.Code, appErrors.FromError(err).Code)
	assert.Empty(t, reports.stageUpdates)
}

func TestFeedbackServiceHODFeedbackScopedToDepartment(t *testing.T) {
	reports := &mockFeedbackReportRepo{detail: supervisedReport(models.StageProgress1)}
	repo := &mockFeedbackRepo{}
	svc := NewFeedbackService(repo, reports, &mockActivityWriter{}, &mockFeedbackNotifier{}, nil, nil)

	hod := &models.JWTClaims{UserID: "hod-1", Role: models.RoleHOD, Department: "Computer Science"}
	feedback, err := svc.PostHODFeedback(context.Background(), "report-1", hod, PostHODFeedbackRequest{Comment: "well structured"})
	require.NoError(t, err)
	assert.Equal(t, "hod-1", feedback.HODID)
	assert.Empty(t, reports.statusUpdates, "hod feedback must not change status")

	foreignHOD := &models.JWTClaims{UserID: "hod-2", Role: models.RoleHOD, Department: "Mathematics"}
	_, err = svc.PostHODFeedback(context.Background(), "report-1", foreignHOD, PostHODFeedbackRequest{Comment: "well structured"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFoundOrUnauthorized.Code, appErrors.FromError(err).Code)
}
