package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

func TestStatusBreakdown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS count FROM jobs GROUP BY status").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("active", 5).
			AddRow("completed", 2))

	rows, err := repo.StatusBreakdown(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "active", rows[0].Status)
	assert.Equal(t, 5, rows[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentBreakdownExcludesUnassigned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery("WHERE employee_assigned IS NOT NULL").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("accepted", 1))

	rows, err := repo.AssignmentBreakdown(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "pending", rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractorWorkloadIncludesIdleContractors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery("LEFT JOIN jobs j ON j.employee_assigned = u.id").
		WithArgs(models.RoleContractor).
		WillReturnRows(sqlmock.NewRows([]string{
			"contractor_id", "contractor_name", "total_jobs", "accepted", "pending", "rejected",
		}).
			AddRow("c1", "Milo Vance", 4, 2, 1, 1).
			AddRow("c2", "Noor Haddad", 0, 0, 0, 0))

	rows, err := repo.ContractorWorkload(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "Milo Vance", rows[0].ContractorName)
	assert.Equal(t, 4, rows[0].TotalJobs)
	assert.Zero(t, rows[1].TotalJobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsByDateTruncatesToDay(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery("SUBSTRING\\(date FROM 1 FOR 10\\)").
		WillReturnRows(sqlmock.NewRows([]string{"date", "count"}).
			AddRow("2026-08-29", 2).
			AddRow("2026-08-30", 1))

	rows, err := repo.JobsByDate(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "2026-08-29", rows[0].Date)
	assert.Equal(t, 2, rows[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsForDateUsesPrefixMatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery("WHERE j.date LIKE").
		WithArgs("2026-08-30%").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_name", "customer_phone", "status", "job_type", "location",
			"date", "description", "employee_assigned", "assignment_status",
			"rejection_reason", "rejected_by", "created_by", "created_at", "updated_at",
			"contractor_first_name", "contractor_last_name", "contractor_email",
		}).AddRow(
			"j1", "Ada Byrne", "", "active", "standard", "12 Pipe Lane",
			"2026-08-30T09:00", "", "c1", "accepted", "", nil, "u1", testTime(), testTime(),
			"Milo", "Vance", "milo@example.com",
		))

	rows, err := repo.JobsForDate(context.Background(), "2026-08-30")
	require.NoError(t, err)

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ContractorFirstName)
	assert.Equal(t, "Milo", *rows[0].ContractorFirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
