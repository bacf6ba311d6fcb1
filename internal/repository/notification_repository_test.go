package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

func notificationDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "job_id", "user_id", "type", "message", "rejection_reason",
		"is_read", "created_at", "job_customer_name", "job_location",
		"job_date", "job_status", "job_assignment_status",
	})
}

func TestNotificationListForUserKeepsDanglingJobRefs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery("LEFT JOIN jobs j ON j.id = n.job_id").
		WithArgs("c1").
		WillReturnRows(notificationDetailRows().
			AddRow("n1", "j1", "c1", "job_assigned", "assigned", "", false, testTime(),
				"Ada Byrne", "12 Pipe Lane", "2026-09-01", "active", "pending").
			AddRow("n2", "j-deleted", "c1", "job_assigned", "assigned", "", false, testTime(),
				nil, nil, nil, nil, nil))

	notifications, err := repo.ListForUser(context.Background(), "c1")
	require.NoError(t, err)

	require.Len(t, notifications, 2)
	require.NotNil(t, notifications[0].JobCustomerName)
	assert.Equal(t, "Ada Byrne", *notifications[0].JobCustomerName)
	assert.Nil(t, notifications[1].JobCustomerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnreadPendingAssignmentsJoinsOnPendingJobs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery("INNER JOIN jobs j ON j.id = n.job_id").
		WithArgs("c1", models.NotificationJobAssigned, models.AssignmentPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountUnreadPendingAssignments(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnreadExcludesDanglingViaInnerJoin(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectQuery("INNER JOIN jobs j ON j.id = n.job_id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountUnread(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkRead(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1")).
		WithArgs("n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "n1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkAllRead(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	require.NoError(t, repo.MarkAllRead(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
