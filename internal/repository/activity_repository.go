package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-workflow-api/internal/models"
)

// ActivityRepository persists the append-only activity trail.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create stores an activity log entry.
func (r *ActivityRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :action, :resource_type, :resource_id, :metadata, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// ListRecent returns the most recent activity rows joined with actor names.
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]models.ActivityLogDetail, error) {
	if limit <= 0 {
		limit = 15
	}
	query := fmt.Sprintf(`
SELECT l.id, l.user_id, l.action, l.resource_type, l.resource_id, l.metadata, l.ip_address, l.user_agent, l.created_at,
       u.full_name AS user_name
FROM activity_logs l
LEFT JOIN users u ON u.id = l.user_id
ORDER BY l.created_at DESC
LIMIT %d`, limit)
	var logs []models.ActivityLogDetail
	if err := r.db.SelectContext(ctx, &logs, query); err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return logs, nil
}

// ListByUser returns a user's activity rows, newest first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ActivityLogDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT l.id, l.user_id, l.action, l.resource_type, l.resource_id, l.metadata, l.ip_address, l.user_agent, l.created_at,
       u.full_name AS user_name
FROM activity_logs l
LEFT JOIN users u ON u.id = l.user_id
WHERE l.user_id = $1
ORDER BY l.created_at DESC
LIMIT %d`, limit)
	var logs []models.ActivityLogDetail
	if err := r.db.SelectContext(ctx, &logs, query, userID); err != nil {
		return nil, fmt.Errorf("list user activity: %w", err)
	}
	return logs, nil
}

// CountActiveUsersSince counts distinct users with activity after the cutoff.
func (r *ActivityRepository) CountActiveUsersSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(DISTINCT user_id) FROM activity_logs WHERE created_at >= $1 AND user_id IS NOT NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}
