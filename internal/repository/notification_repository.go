package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

const notificationDetailColumns = `n.id, n.job_id, n.user_id, n.type, n.message, n.rejection_reason, n.is_read, n.created_at,
	j.customer_name AS job_customer_name, j.location AS job_location, j.date AS job_date,
	j.status AS job_status, j.assignment_status AS job_assignment_status`

// NotificationRepository provides read and bookkeeping access to assignment
// notifications. Creation happens through the job repository transactions.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// FindByID returns a single notification without the job join.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	const query = `SELECT id, job_id, user_id, type, message, rejection_reason, is_read, created_at FROM notifications WHERE id = $1 LIMIT 1`
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find notification by id: %w", err)
	}
	return &notification, nil
}

// ListForUser returns a user's notifications with the job snapshot joined in,
// newest first. Notifications whose job has been deleted still appear with
// nil job fields.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string) ([]models.NotificationDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications n
		LEFT JOIN jobs j ON j.id = n.job_id
		WHERE n.user_id = $1
		ORDER BY n.created_at DESC`, notificationDetailColumns)

	var notifications []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications for user: %w", err)
	}
	return notifications, nil
}

// ListAll returns every notification with the job snapshot joined in, newest
// first. Admin listing only.
func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.NotificationDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications n
		LEFT JOIN jobs j ON j.id = n.job_id
		ORDER BY n.created_at DESC`, notificationDetailColumns)

	var notifications []models.NotificationDetail
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list all notifications: %w", err)
	}
	return notifications, nil
}

// CountUnreadPendingAssignments counts a contractor's unread job_assigned
// notices whose job still awaits their decision.
func (r *NotificationRepository) CountUnreadPendingAssignments(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications n
		INNER JOIN jobs j ON j.id = n.job_id
		WHERE n.user_id = $1 AND n.is_read = FALSE AND n.type = $2 AND j.assignment_status = $3`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.NotificationJobAssigned, models.AssignmentPending); err != nil {
		return 0, fmt.Errorf("count unread pending assignments: %w", err)
	}
	return count, nil
}

// CountUnread counts a user's unread notifications whose job reference still
// resolves. Dangling notices are excluded from the badge but remain listable.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications n
		INNER JOIN jobs j ON j.id = n.job_id
		WHERE n.user_id = $1 AND n.is_read = FALSE`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips a single notification to read. Idempotent.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips every unread notification for the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Delete removes a notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notifications WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
