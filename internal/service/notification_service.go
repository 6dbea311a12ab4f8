package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	"github.com/noah-isme/report-workflow-api/pkg/jobs"
	"github.com/noah-isme/report-workflow-api/pkg/mailer"
)

const (
	jobReportSubmitted = "report_submitted"
	jobFeedbackGiven   = "feedback_given"
)

type emailJob struct {
	To       string
	Subject  string
	Template string
	Data     map[string]interface{}
}

const submittedTemplate = `<p>Hello {{.SupervisorName}},</p>
<p>{{.StudentName}} submitted <strong>{{.Title}}</strong> ({{.Stage}}) for your review.</p>
<p>Log in to the dashboard to review the report.</p>`

const feedbackTemplate = `<p>Hello {{.StudentName}},</p>
<p>Your supervisor reviewed <strong>{{.Title}}</strong> ({{.Stage}}) and took action: <strong>{{.Action}}</strong>.</p>
<blockquote>{{.Comment}}</blockquote>
<p>Log in to the dashboard for the full feedback thread.</p>`

// NotificationService dispatches email notifications through a background
// queue. Every entry point is fire-and-forget: a full queue or SMTP failure
// never surfaces to the request path.
type NotificationService struct {
	queue  *jobs.Queue
	mail   *mailer.Mailer
	logger *zap.Logger
}

// NewNotificationService builds the service and its queue. Call Start before
// serving traffic and Stop on shutdown.
func NewNotificationService(mail *mailer.Mailer, workers, bufferSize int, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mail: mail, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: bufferSize,
		Logger:     logger,
	})
	return s
}

// Start begins background delivery.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// ReportSubmitted notifies the assigned supervisor about a new submission.
func (s *NotificationService) ReportSubmitted(report *models.Report, student, supervisor *models.User) {
	if supervisor == nil || supervisor.Email == "" {
		return
	}
	s.enqueue(jobReportSubmitted, emailJob{
		To:       supervisor.Email,
		Subject:  fmt.Sprintf("New report submitted: %s", report.Title),
		Template: submittedTemplate,
		Data: map[string]interface{}{
			"SupervisorName": supervisor.FullName,
			"StudentName":    student.FullName,
			"Title":          report.Title,
			"Stage":          string(report.ReportStage),
		},
	})
}

// FeedbackGiven notifies the student that their report was reviewed.
func (s *NotificationService) FeedbackGiven(report *models.Report, studentEmail, studentName, comment string, action models.FeedbackAction) {
	if studentEmail == "" {
		return
	}
	s.enqueue(jobFeedbackGiven, emailJob{
		To:       studentEmail,
		Subject:  fmt.Sprintf("Feedback on your report: %s", report.Title),
		Template: feedbackTemplate,
		Data: map[string]interface{}{
			"StudentName": studentName,
			"Title":       report.Title,
			"Stage":       string(report.ReportStage),
			"Action":      string(action),
			"Comment":     comment,
		},
	})
}

func (s *NotificationService) enqueue(jobType string, payload emailJob) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobType,
		Payload: payload,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailJob)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("type", job.Type))
		return nil
	}

	body, err := mailer.RenderTemplate(job.Type, payload.Template, payload.Data)
	if err != nil {
		return err
	}
	return s.mail.Send(mailer.Message{
		To:       payload.To,
		Subject:  payload.Subject,
		HTMLBody: body,
	})
}
