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

func newAssignmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryReplaceSwapsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE student_supervisor_assignments SET is_active = FALSE WHERE student_id = $1 AND is_active = TRUE`)).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_supervisor_assignments").
		WithArgs(sqlmock.AnyArg(), "student-1", "supervisor-1", "coordinator-1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	assignment := &models.Assignment{
		StudentID:          "student-1",
		SupervisorID:       "supervisor-1",
		LevelCoordinatorID: "coordinator-1",
	}
	require.NoError(t, repo.Replace(context.Background(), assignment))
	assert.True(t, assignment.Active)
	assert.NotEmpty(t, assignment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeactivateOwned(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE student_supervisor_assignments SET is_active = FALSE WHERE id = $1 AND level_coordinator_id = $2 AND is_active = TRUE`)).
		WithArgs("assignment-1", "coordinator-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeactivateOwned(context.Background(), "assignment-1", "coordinator-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDeactivateOwnedZeroRows(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE student_supervisor_assignments SET is_active = FALSE WHERE id = $1 AND level_coordinator_id = $2 AND is_active = TRUE`)).
		WithArgs("assignment-1", "other-coordinator").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeactivateOwned(context.Background(), "assignment-1", "other-coordinator")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListActiveFiltersByLevel(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "supervisor_id", "level_coordinator_id", "is_active", "created_at", "student_name", "registration_number", "student_level", "supervisor_name"}).
		AddRow("assignment-1", "student-1", "supervisor-1", "coordinator-1", true, time.Now(), "Student One", "REG001", "400", "Supervisor One")
	mock.ExpectQuery("FROM student_supervisor_assignments a").
		WithArgs("400").
		WillReturnRows(rows)

	assignments, err := repo.ListActive(context.Background(), models.AssignmentFilter{Level: "400"})
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
	assert.Equal(t, "Student One", assignments[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
