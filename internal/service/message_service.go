package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/plumbdesk/plumbdesk-api/internal/access"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	ListByJob(ctx context.Context, jobID string) ([]models.MessageDetail, error)
	ListByReceiver(ctx context.Context, userID string) ([]models.MessageDetail, error)
	ListBySender(ctx context.Context, userID string) ([]models.MessageDetail, error)
	ListDirect(ctx context.Context, userID string) ([]models.MessageDetail, error)
	Conversation(ctx context.Context, userID, otherID string) ([]models.MessageDetail, error)
	Delete(ctx context.Context, id string) error
}

type messageUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type messageJobLookup interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
}

// SendMessageRequest is the payload for sending a message. A jobId makes the
// message job related; otherwise it is a direct message.
type SendMessageRequest struct {
	ReceiverID string  `json:"receiverId" validate:"required"`
	Content    string  `json:"content" validate:"required"`
	JobID      *string `json:"jobId"`
}

// MessageService implements the triangular messaging policy: contractors and
// admins talk to receptionists, receptionists talk to both.
type MessageService struct {
	repo       messageRepository
	users      messageUserLookup
	jobs       messageJobLookup
	validator  *validator.Validate
	logger     *zap.Logger
	maxContent int
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(repo messageRepository, users messageUserLookup, jobs messageJobLookup, validate *validator.Validate, logger *zap.Logger, maxContent int) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxContent <= 0 {
		maxContent = 100
	}
	return &MessageService{repo: repo, users: users, jobs: jobs, validator: validate, logger: logger, maxContent: maxContent}
}

// Send validates the pairing rules and persists the message.
func (s *MessageService) Send(ctx context.Context, actor *models.AuthUser, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if len(req.Content) > s.maxContent {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("message content exceeds %d characters", s.maxContent))
	}

	receiver, err := s.users.FindByID(ctx, req.ReceiverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receiver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receiver")
	}

	if !access.CanMessage(actor.Role, receiver.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%ss may not message %ss", actor.Role, receiver.Role))
	}

	messageType := models.MessageDirect
	var jobID *string
	if req.JobID != nil && *req.JobID != "" {
		job, err := s.jobs.FindByID(ctx, *req.JobID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
		}
		if actor.Role == models.RoleContractor && (job.EmployeeAssigned == nil || *job.EmployeeAssigned != actor.ID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this job")
		}
		messageType = models.MessageJobRelated
		jobID = &job.ID
	}

	message := &models.Message{
		JobID:       jobID,
		SenderID:    actor.ID,
		ReceiverID:  receiver.ID,
		Content:     req.Content,
		MessageType: messageType,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	return message, nil
}

// JobMessages returns the thread attached to a job, oldest first.
func (s *MessageService) JobMessages(ctx context.Context, actor *models.AuthUser, jobID string) ([]models.MessageDetail, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	if actor.Role == models.RoleContractor && (job.EmployeeAssigned == nil || *job.EmployeeAssigned != actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this job")
	}

	messages, err := s.repo.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list job messages")
	}
	return messages, nil
}

// Inbox returns messages addressed to the caller, newest first.
func (s *MessageService) Inbox(ctx context.Context, actor *models.AuthUser) ([]models.MessageDetail, error) {
	messages, err := s.repo.ListByReceiver(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list inbox")
	}
	return messages, nil
}

// Sent returns messages the caller has sent, newest first.
func (s *MessageService) Sent(ctx context.Context, actor *models.AuthUser) ([]models.MessageDetail, error) {
	messages, err := s.repo.ListBySender(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sent messages")
	}
	return messages, nil
}

// Direct returns the caller's direct messages in both directions.
func (s *MessageService) Direct(ctx context.Context, actor *models.AuthUser) ([]models.MessageDetail, error) {
	messages, err := s.repo.ListDirect(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list direct messages")
	}
	return messages, nil
}

// Conversation returns the history between the caller and another user.
func (s *MessageService) Conversation(ctx context.Context, actor *models.AuthUser, otherID string) ([]models.MessageDetail, error) {
	messages, err := s.repo.Conversation(ctx, actor.ID, otherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversation")
	}
	return messages, nil
}

// Delete removes a message. Only a participant or an admin may delete.
func (s *MessageService) Delete(ctx context.Context, actor *models.AuthUser, id string) error {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}

	if message.SenderID != actor.ID && message.ReceiverID != actor.ID && actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "not authorized to delete this message")
	}

	if err := s.repo.Delete(ctx, message.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete message")
	}
	return nil
}
