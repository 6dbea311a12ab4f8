package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-workflow-api/internal/models"
)

// StatsRepository serves the read-only aggregates behind dashboards. Every
// query is a point-in-time read; no snapshot consistency is attempted.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// CountUsers returns the total number of accounts.
func (r *StatsRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CountReports returns the total number of report rows.
func (r *StatsRepository) CountReports(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports`); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

// UsersByRole returns account counts grouped by role.
func (r *StatsRepository) UsersByRole(ctx context.Context) ([]models.RoleCount, error) {
	const query = `SELECT role, COUNT(*) AS count FROM users GROUP BY role ORDER BY role`
	var counts []models.RoleCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	return counts, nil
}

// UsersByDepartment returns account counts grouped by department.
func (r *StatsRepository) UsersByDepartment(ctx context.Context) ([]models.DepartmentCount, error) {
	const query = `SELECT department, COUNT(*) AS count FROM users WHERE department <> '' GROUP BY department ORDER BY count DESC`
	var counts []models.DepartmentCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count users by department: %w", err)
	}
	return counts, nil
}

// ReportsByStatus returns report counts grouped by status, optionally scoped
// to a department.
func (r *StatsRepository) ReportsByStatus(ctx context.Context, department string) ([]models.StatusCount, error) {
	query := `SELECT r.status, COUNT(*) AS count FROM reports r`
	var args []interface{}
	if department != "" {
		query += ` JOIN users st ON st.id = r.student_id WHERE st.department = $1`
		args = append(args, department)
	}
	query += ` GROUP BY r.status ORDER BY r.status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count reports by status: %w", err)
	}
	return counts, nil
}

// UserGrowthMonthly returns account creation counts per month for the last
// n months.
func (r *StatsRepository) UserGrowthMonthly(ctx context.Context, months int) ([]models.MonthlyCount, error) {
	if months <= 0 {
		months = 6
	}
	const query = `
SELECT TO_CHAR(created_at, 'YYYY-MM') AS month, COUNT(*) AS count
FROM users
WHERE created_at >= NOW() - ($1 || ' months')::interval
GROUP BY month
ORDER BY month ASC`
	var counts []models.MonthlyCount
	if err := r.db.SelectContext(ctx, &counts, query, months); err != nil {
		return nil, fmt.Errorf("user growth by month: %w", err)
	}
	return counts, nil
}

// MonthlyReportCounts returns report submissions per month with the approved
// share, optionally scoped to a department.
func (r *StatsRepository) MonthlyReportCounts(ctx context.Context, department string, months int) ([]models.MonthlyReportCount, error) {
	if months <= 0 {
		months = 6
	}
	query := `
SELECT TO_CHAR(r.submitted_at, 'YYYY-MM') AS month,
       COUNT(*) AS total,
       COUNT(*) FILTER (WHERE r.status = 'approved') AS approved
FROM reports r`
	args := []interface{}{months}
	if department != "" {
		query += `
JOIN users st ON st.id = r.student_id
WHERE r.submitted_at >= NOW() - ($1 || ' months')::interval AND st.department = $2`
		args = append(args, department)
	} else {
		query += `
WHERE r.submitted_at >= NOW() - ($1 || ' months')::interval`
	}
	query += `
GROUP BY month
ORDER BY month ASC`
	var counts []models.MonthlyReportCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("report counts by month: %w", err)
	}
	return counts, nil
}

// SupervisorReportCounts fills the supervisor dashboard numbers in one pass.
func (r *StatsRepository) SupervisorReportCounts(ctx context.Context, supervisorID string) (*models.SupervisorOverview, error) {
	const query = `
SELECT COUNT(DISTINCT student_id) AS total_students,
       COUNT(*) AS total_reports,
       COUNT(*) FILTER (WHERE status = 'pending') AS pending_count,
       COUNT(*) FILTER (WHERE status = 'approved') AS approved_count,
       COUNT(*) FILTER (WHERE status = 'rejected') AS rejected_count
FROM reports
WHERE supervisor_id = $1`
	var overview models.SupervisorOverview
	row := r.db.QueryRowxContext(ctx, query, supervisorID)
	if err := row.Scan(&overview.TotalStudents, &overview.TotalReports, &overview.PendingCount, &overview.ApprovedCount, &overview.RejectedCount); err != nil {
		return nil, fmt.Errorf("supervisor report counts: %w", err)
	}
	return &overview, nil
}

// DepartmentUserCount counts active users of a role inside a department.
func (r *StatsRepository) DepartmentUserCount(ctx context.Context, department string, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE department = $1 AND role = $2 AND is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, department, role); err != nil {
		return 0, fmt.Errorf("count department users: %w", err)
	}
	return count, nil
}

// DepartmentReportCount counts reports whose student belongs to a department.
func (r *StatsRepository) DepartmentReportCount(ctx context.Context, department string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM reports r
JOIN users st ON st.id = r.student_id
WHERE st.department = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, department); err != nil {
		return 0, fmt.Errorf("count department reports: %w", err)
	}
	return count, nil
}

// StudentsByLevel returns active student counts per level, optionally scoped
// to a department.
func (r *StatsRepository) StudentsByLevel(ctx context.Context, department string) ([]models.LevelCount, error) {
	query := `SELECT COALESCE(level, '') AS level, COUNT(*) AS count FROM users WHERE role = 'student' AND is_active = TRUE`
	var args []interface{}
	if department != "" {
		args = append(args, department)
		query += ` AND department = $1`
	}
	query += ` GROUP BY level ORDER BY level ASC`
	var counts []models.LevelCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count students by level: %w", err)
	}
	return counts, nil
}
