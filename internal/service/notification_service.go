package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type notificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]models.NotificationDetail, error)
	ListAll(ctx context.Context) ([]models.NotificationDetail, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	CountUnreadPendingAssignments(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
}

// UnreadCountResponse carries the badge count for the notification bell.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// NotificationService exposes assignment notifications to their recipients.
// Creation is owned by the job workflow; this service only reads and toggles.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService instance.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// List returns the caller's notifications, or every notification for admins
// when all is set.
func (s *NotificationService) List(ctx context.Context, actor *models.AuthUser, all bool) ([]models.NotificationDetail, error) {
	if all {
		if actor.Role != models.RoleAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may list all notifications")
		}
		notifications, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
		}
		return notifications, nil
	}

	notifications, err := s.repo.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount computes the caller's badge count. Contractors only count
// unread assignment notices whose job still awaits their decision; staff
// count any unread notice whose job still exists.
func (s *NotificationService) UnreadCount(ctx context.Context, actor *models.AuthUser) (*UnreadCountResponse, error) {
	var (
		count int
		err   error
	)
	if actor.Role == models.RoleContractor {
		count, err = s.repo.CountUnreadPendingAssignments(ctx, actor.ID)
	} else {
		count, err = s.repo.CountUnread(ctx, actor.ID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return &UnreadCountResponse{Count: count}, nil
}

// MarkRead flips one notification to read. Only the recipient may do this,
// admins included. Idempotent; repeating the call on a read notification
// succeeds without effect.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.AuthUser, id string) error {
	notification, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another user")
	}
	if err := s.repo.MarkRead(ctx, notification.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flips every unread notification belonging to the caller.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor *models.AuthUser) error {
	if err := s.repo.MarkAllRead(ctx, actor.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// Delete removes a notification. Recipients delete their own; admins any.
func (s *NotificationService) Delete(ctx context.Context, actor *models.AuthUser, id string) error {
	notification, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another user")
	}
	if err := s.repo.Delete(ctx, notification.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

func (s *NotificationService) load(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	return notification, nil
}
