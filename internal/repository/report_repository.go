package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-workflow-api/internal/models"
)

// ReportRepository persists report lineages.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, student_id, supervisor_id, title, report_stage, file_url, file_name, file_size, version, status, submitted_at, updated_at`

// Create inserts a new report row at version 1, status pending.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.SubmittedAt.IsZero() {
		report.SubmittedAt = now
	}
	report.UpdatedAt = now
	report.Version = 1
	report.Status = models.StatusPending

	const query = `INSERT INTO reports (id, student_id, supervisor_id, title, report_stage, file_url, file_name, file_size, version, status, submitted_at, updated_at)
		VALUES (:id, :student_id, :supervisor_id, :title, :report_stage, :file_url, :file_name, :file_size, :version, :status, :submitted_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID returns a report row.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 LIMIT 1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

// FindDetail returns a report joined with the student's identity.
func (r *ReportRepository) FindDetail(ctx context.Context, id string) (*models.ReportDetail, error) {
	const query = `
SELECT r.id, r.student_id, r.supervisor_id, r.title, r.report_stage, r.file_url, r.file_name, r.file_size, r.version, r.status, r.submitted_at, r.updated_at,
       st.full_name AS student_name, st.email AS student_email, st.department AS student_department, st.registration_number, st.level AS student_level
FROM reports r
JOIN users st ON st.id = r.student_id
WHERE r.id = $1
LIMIT 1`
	var detail models.ReportDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report detail: %w", err)
	}
	return &detail, nil
}

// UpdateOnReupload replaces the file columns on the same row, increments the
// version in place and resets status to pending.
func (r *ReportRepository) UpdateOnReupload(ctx context.Context, id, fileURL, fileName string, fileSize int64) error {
	const query = `UPDATE reports SET file_url = $2, file_name = $3, file_size = $4, version = version + 1, status = 'pending', updated_at = $5 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, fileURL, fileName, fileSize, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reupload report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reuploaded report rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets the report status.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	const query = `UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated report rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AdvanceStage moves the row to the given stage and resets status to pending.
func (r *ReportRepository) AdvanceStage(ctx context.Context, id string, stage models.ReportStage) error {
	const query = `UPDATE reports SET report_stage = $2, status = 'pending', updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, stage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("advance report stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check advanced report rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateFileSize refreshes the stored size after an in-place content edit.
func (r *ReportRepository) UpdateFileSize(ctx context.Context, id string, fileSize int64) error {
	const query = `UPDATE reports SET file_size = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, fileSize, time.Now().UTC()); err != nil {
		return fmt.Errorf("update report file size: %w", err)
	}
	return nil
}

// ListVersions returns every row in the lineage (student, title, stage)
// ordered by version descending. The first row is the current report.
func (r *ReportRepository) ListVersions(ctx context.Context, studentID, title string, stage models.ReportStage) ([]models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE student_id = $1 AND title = $2 AND report_stage = $3 ORDER BY version DESC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, studentID, title, stage); err != nil {
		return nil, fmt.Errorf("list report versions: %w", err)
	}
	return reports, nil
}

// ListByStudent returns all of a student's reports, newest first.
func (r *ReportRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE student_id = $1 ORDER BY submitted_at DESC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, studentID); err != nil {
		return nil, fmt.Errorf("list student reports: %w", err)
	}
	return reports, nil
}

// List returns reports joined with student identity, filtered for review
// listings. Supervisors are scoped to their own reports, HODs to their
// department.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.ReportDetail, int, error) {
	baseQuery := `
FROM reports r
JOIN users st ON st.id = r.student_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.SupervisorID != "" {
		conditions = append(conditions, fmt.Sprintf("r.supervisor_id = $%d", len(args)+1))
		args = append(args, filter.SupervisorID)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("st.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Stage != nil {
		conditions = append(conditions, fmt.Sprintf("r.report_stage = $%d", len(args)+1))
		args = append(args, *filter.Stage)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.title) LIKE $%d OR LOWER(st.full_name) LIKE $%d OR LOWER(COALESCE(st.registration_number, '')) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT r.id, r.student_id, r.supervisor_id, r.title, r.report_stage, r.file_url, r.file_name, r.file_size, r.version, r.status, r.submitted_at, r.updated_at,
       st.full_name AS student_name, st.email AS student_email, st.department AS student_department, st.registration_number, st.level AS student_level
%s ORDER BY r.submitted_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var reports []models.ReportDetail
	if err := r.db.SelectContext(ctx, &reports, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	return reports, total, nil
}
