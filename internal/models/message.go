package models

import "time"

// MessageType separates job-scoped from direct employee messages.
type MessageType string

const (
	MessageJobRelated MessageType = "job_related"
	MessageDirect     MessageType = "direct"
)

// Message represents a short text exchanged between two employees, optionally
// linked to a job. Immutable after creation except for deletion.
type Message struct {
	ID          string      `db:"id" json:"id"`
	JobID       *string     `db:"job_id" json:"jobId"`
	SenderID    string      `db:"sender_id" json:"senderId"`
	ReceiverID  string      `db:"receiver_id" json:"receiverId"`
	Content     string      `db:"content" json:"content"`
	MessageType MessageType `db:"message_type" json:"messageType"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
}

// MessageDetail decorates a message with sender/receiver profiles and the
// referenced job snapshot for listing endpoints. Joined fields are pointers
// because both references are weak.
type MessageDetail struct {
	Message
	SenderFirstName   *string   `db:"sender_first_name" json:"senderFirstName,omitempty"`
	SenderLastName    *string   `db:"sender_last_name" json:"senderLastName,omitempty"`
	SenderRole        *UserRole `db:"sender_role" json:"senderRole,omitempty"`
	SenderPhone       *string   `db:"sender_phone" json:"senderPhone,omitempty"`
	ReceiverFirstName *string   `db:"receiver_first_name" json:"receiverFirstName,omitempty"`
	ReceiverLastName  *string   `db:"receiver_last_name" json:"receiverLastName,omitempty"`
	ReceiverRole      *UserRole `db:"receiver_role" json:"receiverRole,omitempty"`
	ReceiverPhone     *string   `db:"receiver_phone" json:"receiverPhone,omitempty"`
	JobCustomerName   *string   `db:"job_customer_name" json:"jobCustomerName,omitempty"`
	JobLocation       *string   `db:"job_location" json:"jobLocation,omitempty"`
	JobCustomerPhone  *string   `db:"job_customer_phone" json:"jobCustomerPhone,omitempty"`
}
