package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-workflow-api/internal/models"
)

func newReportMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateStartsLineageAtVersionOne(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("INSERT INTO reports").
		WithArgs(sqlmock.AnyArg(), "student-1", "supervisor-1", "Thesis Proposal", "progress_1", "/uploads/reports/f.pdf", "f.pdf", int64(2048), 1, "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	report := &models.Report{
		StudentID:    "student-1",
		SupervisorID: "supervisor-1",
		Title:        "Thesis Proposal",
		ReportStage:  models.StageProgress1,
		FileURL:      "/uploads/reports/f.pdf",
		FileName:     "f.pdf",
		FileSize:     2048,
	}
	require.NoError(t, repo.Create(context.Background(), report))
	assert.Equal(t, 1, report.Version)
	assert.Equal(t, models.StatusPending, report.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateOnReuploadIncrementsInPlace(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reports SET file_url = $2, file_name = $3, file_size = $4, version = version + 1, status = 'pending', updated_at = $5 WHERE id = $1`)).
		WithArgs("report-1", "/uploads/reports/g.pdf", "g.pdf", int64(4096), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateOnReupload(context.Background(), "report-1", "/uploads/reports/g.pdf", "g.pdf", 4096))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateOnReuploadMissingRow(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("UPDATE reports SET file_url").
		WithArgs("missing", "/uploads/reports/g.pdf", "g.pdf", int64(4096), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateOnReupload(context.Background(), "missing", "/uploads/reports/g.pdf", "g.pdf", 4096)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListVersionsOrdersDescending(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "supervisor_id", "title", "report_stage", "file_url", "file_name", "file_size", "version", "status", "submitted_at", "updated_at"}).
		AddRow("report-1", "student-1", "supervisor-1", "Thesis Proposal", "progress_1", "/uploads/reports/f.pdf", "f.pdf", 2048, 4, "pending", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reports WHERE student_id = $1 AND title = $2 AND report_stage = $3 ORDER BY version DESC`)).
		WithArgs("student-1", "Thesis Proposal", "progress_1").
		WillReturnRows(rows)

	reports, err := repo.ListVersions(context.Background(), "student-1", "Thesis Proposal", models.StageProgress1)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 4, reports[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryAdvanceStageResetsStatus(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reports SET report_stage = $2, status = 'pending', updated_at = $3 WHERE id = $1`)).
		WithArgs("report-1", "progress_2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AdvanceStage(context.Background(), "report-1", models.StageProgress2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
