package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

const messageDetailColumns = `m.id, m.job_id, m.sender_id, m.receiver_id, m.content, m.message_type, m.created_at,
	s.first_name AS sender_first_name, s.last_name AS sender_last_name, s.role AS sender_role, s.phone AS sender_phone,
	rc.first_name AS receiver_first_name, rc.last_name AS receiver_last_name, rc.role AS receiver_role, rc.phone AS receiver_phone,
	j.customer_name AS job_customer_name, j.location AS job_location, j.customer_phone AS job_customer_phone`

const messageDetailJoins = `FROM messages m
	LEFT JOIN users s ON s.id = m.sender_id
	LEFT JOIN users rc ON rc.id = m.receiver_id
	LEFT JOIN jobs j ON j.id = m.job_id`

// MessageRepository provides persistence for employee messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new instance of MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO messages (id, job_id, sender_id, receiver_id, content, message_type, created_at)
		VALUES (:id, :job_id, :sender_id, :receiver_id, :content, :message_type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// FindByID returns a message without joins.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	const query = `SELECT id, job_id, sender_id, receiver_id, content, message_type, created_at FROM messages WHERE id = $1 LIMIT 1`
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find message by id: %w", err)
	}
	return &message, nil
}

// ListByJob returns all messages linked to a job, oldest first.
func (r *MessageRepository) ListByJob(ctx context.Context, jobID string) ([]models.MessageDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.job_id = $1 ORDER BY m.created_at ASC", messageDetailColumns, messageDetailJoins)
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, jobID); err != nil {
		return nil, fmt.Errorf("list messages by job: %w", err)
	}
	return messages, nil
}

// ListByReceiver returns a user's inbox, newest first.
func (r *MessageRepository) ListByReceiver(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.receiver_id = $1 ORDER BY m.created_at DESC", messageDetailColumns, messageDetailJoins)
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, fmt.Errorf("list messages by receiver: %w", err)
	}
	return messages, nil
}

// ListBySender returns a user's sent messages, newest first.
func (r *MessageRepository) ListBySender(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE m.sender_id = $1 ORDER BY m.created_at DESC", messageDetailColumns, messageDetailJoins)
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, fmt.Errorf("list messages by sender: %w", err)
	}
	return messages, nil
}

// ListDirect returns direct messages where the user is sender or receiver,
// newest first.
func (r *MessageRepository) ListDirect(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE m.message_type = $1 AND (m.sender_id = $2 OR m.receiver_id = $2)
		ORDER BY m.created_at DESC`, messageDetailColumns, messageDetailJoins)
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, models.MessageDirect, userID); err != nil {
		return nil, fmt.Errorf("list direct messages: %w", err)
	}
	return messages, nil
}

// Conversation returns the two-way message history between two users across
// both message types, oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, userID, otherID string) ([]models.MessageDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE (m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.created_at ASC`, messageDetailColumns, messageDetailJoins)
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, userID, otherID); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return messages, nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM messages WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
