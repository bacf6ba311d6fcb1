package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func testTime() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "customer_name", "customer_phone", "status", "job_type", "location",
		"date", "description", "employee_assigned", "assignment_status",
		"rejection_reason", "rejected_by", "created_by", "created_at", "updated_at",
	})
}

func TestJobFindByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, customer_name, customer_phone, status, job_type, location, date, description, employee_assigned, assignment_status, rejection_reason, rejected_by, created_by, created_at, updated_at FROM jobs WHERE id = $1 LIMIT 1")).
		WithArgs("j1").
		WillReturnRows(jobRows().AddRow(
			"j1", "Ada Byrne", "555-0100", "active", "standard", "12 Pipe Lane",
			"2026-09-01", "", nil, "unassigned", "", nil, "u1", testTime(), testTime(),
		))

	job, err := repo.FindByID(context.Background(), "j1")
	require.NoError(t, err)

	assert.Equal(t, "Ada Byrne", job.CustomerName)
	assert.Equal(t, models.AssignmentUnassigned, job.AssignmentStatus)
	assert.Nil(t, job.EmployeeAssigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery("SELECT .+ FROM jobs WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobListContractorScope(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE 1=1 AND employee_assigned = $1 AND assignment_status IN ($2, $3) ORDER BY created_at DESC LIMIT 50 OFFSET 0")).
		WithArgs("c1", models.AssignmentPending, models.AssignmentAccepted).
		WillReturnRows(jobRows().AddRow(
			"j1", "Ada Byrne", "", "active", "standard", "12 Pipe Lane",
			"2026-09-01", "", "c1", "pending", "", nil, "u1", testTime(), testTime(),
		))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM jobs WHERE 1=1 AND employee_assigned = $1 AND assignment_status IN ($2, $3)")).
		WithArgs("c1", models.AssignmentPending, models.AssignmentAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	jobs, total, err := repo.List(context.Background(), models.JobFilter{
		ContractorID:       "c1",
		AssignmentStatuses: []models.AssignmentStatus{models.AssignmentPending, models.AssignmentAccepted},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobListSearchAndDateFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE 1=1 AND date LIKE $1 AND (LOWER(customer_name) LIKE $2 OR LOWER(location) LIKE $2)")).
		WithArgs("2026-09%", "%byrne%").
		WillReturnRows(jobRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("2026-09%", "%byrne%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.JobFilter{
		DatePrefix: "2026-09",
		Search:     "Byrne",
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStatusCounts(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM jobs WHERE 1=1 GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("active", 3).
			AddRow("payment pending", 1))

	counts, err := repo.StatusCounts(context.Background(), models.JobFilter{})
	require.NoError(t, err)

	assert.Equal(t, 3, counts[models.JobStatusActive])
	assert.Equal(t, 1, counts[models.JobStatusPaymentPending])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobCreateWithFanoutCommitsTogether(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	contractorID := "c1"
	job := &models.Job{
		CustomerName:     "Ada Byrne",
		Location:         "12 Pipe Lane",
		Date:             "2026-09-01",
		Status:           models.JobStatusActive,
		JobType:          models.JobTypeStandard,
		EmployeeAssigned: &contractorID,
		AssignmentStatus: models.AssignmentPending,
		CreatedBy:        "u1",
	}
	fanout := []models.Notification{{UserID: "c1", Type: models.NotificationJobAssigned, Message: "assigned"}}

	require.NoError(t, repo.Create(context.Background(), job, fanout))
	assert.NotEmpty(t, job.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobCreateRollsBackWhenNotificationFails(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnError(errors.New("notifications table gone"))
	mock.ExpectRollback()

	job := &models.Job{CustomerName: "Ada Byrne", Location: "12 Pipe Lane", Date: "2026-09-01"}
	fanout := []models.Notification{{UserID: "c1", Type: models.NotificationJobAssigned}}

	err := repo.Create(context.Background(), job, fanout)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobResolveMarksOriginatingNoticesRead(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE jobs SET assignment_status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE job_id = $1 AND user_id = $2 AND type = $3 AND is_read = FALSE")).
		WithArgs("j1", "c1", models.NotificationJobAssigned).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	contractorID := "c1"
	job := &models.Job{
		ID:               "j1",
		EmployeeAssigned: &contractorID,
		AssignmentStatus: models.AssignmentRejected,
		RejectionReason:  "double booked",
		RejectedBy:       &contractorID,
	}
	fanout := []models.Notification{{UserID: "u1", Type: models.NotificationJobRejected, RejectionReason: "double booked"}}

	require.NoError(t, repo.Resolve(context.Background(), job, "c1", fanout))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jobs WHERE id = $1")).
		WithArgs("j1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "j1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
