package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-workflow-api/internal/models"
)

// AssignmentRepository persists student-supervisor assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindActiveByStudent returns the student's current active assignment.
func (r *AssignmentRepository) FindActiveByStudent(ctx context.Context, studentID string) (*models.Assignment, error) {
	const query = `SELECT id, student_id, supervisor_id, level_coordinator_id, is_active, created_at
FROM student_supervisor_assignments
WHERE student_id = $1 AND is_active = TRUE
LIMIT 1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active assignment: %w", err)
	}
	return &assignment, nil
}

// Replace deactivates any active assignment for the student and inserts the
// new active row in one transaction, so two concurrent swaps cannot leave two
// active rows behind.
func (r *AssignmentRepository) Replace(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	assignment.Active = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment swap: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deactivate = `UPDATE student_supervisor_assignments SET is_active = FALSE WHERE student_id = $1 AND is_active = TRUE`
	if _, err := tx.ExecContext(ctx, deactivate, assignment.StudentID); err != nil {
		return fmt.Errorf("deactivate prior assignment: %w", err)
	}

	const insert = `INSERT INTO student_supervisor_assignments (id, student_id, supervisor_id, level_coordinator_id, is_active, created_at)
		VALUES (:id, :student_id, :supervisor_id, :level_coordinator_id, :is_active, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment swap: %w", err)
	}
	return nil
}

// DeactivateOwned sets is_active = FALSE on the assignment only when the
// caller created it. Zero affected rows is the authorization signal: the
// caller cannot tell a missing row from someone else's row.
func (r *AssignmentRepository) DeactivateOwned(ctx context.Context, assignmentID, coordinatorID string) error {
	const query = `UPDATE student_supervisor_assignments SET is_active = FALSE WHERE id = $1 AND level_coordinator_id = $2 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, assignmentID, coordinatorID)
	if err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListActive returns active assignments joined with participant names,
// optionally scoped to a student level or supervisor.
func (r *AssignmentRepository) ListActive(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	query := `
SELECT a.id, a.student_id, a.supervisor_id, a.level_coordinator_id, a.is_active, a.created_at,
       st.full_name AS student_name, st.registration_number, st.level AS student_level,
       sp.full_name AS supervisor_name
FROM student_supervisor_assignments a
JOIN users st ON st.id = a.student_id
JOIN users sp ON sp.id = a.supervisor_id
WHERE a.is_active = TRUE`
	var args []interface{}
	if filter.Level != "" {
		args = append(args, filter.Level)
		query += fmt.Sprintf(" AND st.level = $%d", len(args))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		query += fmt.Sprintf(" AND a.supervisor_id = $%d", len(args))
	}
	query += " ORDER BY a.created_at DESC"

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}
	return assignments, nil
}

// ListHistory returns the most recent assignment rows for a level, active or
// not, newest first.
func (r *AssignmentRepository) ListHistory(ctx context.Context, level string, limit int) ([]models.AssignmentDetail, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT a.id, a.student_id, a.supervisor_id, a.level_coordinator_id, a.is_active, a.created_at,
       st.full_name AS student_name, st.registration_number, st.level AS student_level,
       sp.full_name AS supervisor_name
FROM student_supervisor_assignments a
JOIN users st ON st.id = a.student_id
JOIN users sp ON sp.id = a.supervisor_id`
	var args []interface{}
	if level != "" {
		args = append(args, level)
		query += " WHERE st.level = $1"
	}
	query += fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT %d", limit)

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	return assignments, nil
}

// CountActiveBySupervisor returns the supervisor's active assignment count.
func (r *AssignmentRepository) CountActiveBySupervisor(ctx context.Context, supervisorID string) (int, error) {
	const query = `SELECT COUNT(*) FROM student_supervisor_assignments WHERE supervisor_id = $1 AND is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, supervisorID); err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}

// SupervisorLoads returns active assignment counts per active supervisor.
func (r *AssignmentRepository) SupervisorLoads(ctx context.Context) ([]models.SupervisorLoad, error) {
	const query = `
SELECT sp.id AS supervisor_id, sp.full_name AS supervisor_name, COUNT(a.id) AS assigned_count
FROM users sp
LEFT JOIN student_supervisor_assignments a ON a.supervisor_id = sp.id AND a.is_active = TRUE
WHERE sp.role = 'supervisor' AND sp.is_active = TRUE
GROUP BY sp.id, sp.full_name
ORDER BY sp.full_name ASC`
	var loads []models.SupervisorLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("list supervisor loads: %w", err)
	}
	return loads, nil
}

// CountUnassignedStudents counts students on the level with no active
// assignment.
func (r *AssignmentRepository) CountUnassignedStudents(ctx context.Context, level string) (int, error) {
	query := `
SELECT COUNT(*)
FROM users st
WHERE st.role = 'student' AND st.is_active = TRUE
  AND NOT EXISTS (
    SELECT 1 FROM student_supervisor_assignments a
    WHERE a.student_id = st.id AND a.is_active = TRUE
  )`
	var args []interface{}
	if level != "" {
		args = append(args, level)
		query += " AND st.level = $1"
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count unassigned students: %w", err)
	}
	return count, nil
}
