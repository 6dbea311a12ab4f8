package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-workflow-api/internal/models"
)

// FeedbackRepository persists supervisor and HOD feedback. Both tables are
// append-only.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a supervisor feedback row.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedback (id, report_id, supervisor_id, comment, action_taken, created_at)
		VALUES (:id, :report_id, :supervisor_id, :comment, :action_taken, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// ListByReport returns feedback for a report, newest first.
func (r *FeedbackRepository) ListByReport(ctx context.Context, reportID string) ([]models.FeedbackDetail, error) {
	const query = `
SELECT f.id, f.report_id, f.supervisor_id, f.comment, f.action_taken, f.created_at,
       sp.full_name AS supervisor_name
FROM feedback f
JOIN users sp ON sp.id = f.supervisor_id
WHERE f.report_id = $1
ORDER BY f.created_at DESC`
	var feedback []models.FeedbackDetail
	if err := r.db.SelectContext(ctx, &feedback, query, reportID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return feedback, nil
}

// CreateHOD inserts a head-of-department feedback row.
func (r *FeedbackRepository) CreateHOD(ctx context.Context, feedback *models.HODFeedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO hod_feedback (id, report_id, hod_id, comment, created_at)
		VALUES (:id, :report_id, :hod_id, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("create hod feedback: %w", err)
	}
	return nil
}

// ListHODByReport returns HOD feedback for a report, newest first.
func (r *FeedbackRepository) ListHODByReport(ctx context.Context, reportID string) ([]models.HODFeedbackDetail, error) {
	const query = `
SELECT f.id, f.report_id, f.hod_id, f.comment, f.created_at,
       h.full_name AS hod_name
FROM hod_feedback f
JOIN users h ON h.id = f.hod_id
WHERE f.report_id = $1
ORDER BY f.created_at DESC`
	var feedback []models.HODFeedbackDetail
	if err := r.db.SelectContext(ctx, &feedback, query, reportID); err != nil {
		return nil, fmt.Errorf("list hod feedback: %w", err)
	}
	return feedback, nil
}

// CountDistinctFeedbackReports returns how many distinct reports of the
// supervisor have at least one feedback row.
func (r *FeedbackRepository) CountDistinctFeedbackReports(ctx context.Context, supervisorID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT report_id) FROM feedback WHERE supervisor_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, supervisorID); err != nil {
		return 0, fmt.Errorf("count feedback reports: %w", err)
	}
	return count, nil
}
