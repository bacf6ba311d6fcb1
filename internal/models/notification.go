package models

import "time"

// NotificationType distinguishes assignment fan-out notices.
type NotificationType string

const (
	NotificationJobAssigned NotificationType = "job_assigned"
	NotificationJobRejected NotificationType = "job_rejected"
)

// Notification represents a per-user notice created by the assignment
// workflow. Only the read flag is ever mutated after creation.
type Notification struct {
	ID              string           `db:"id" json:"id"`
	JobID           string           `db:"job_id" json:"jobId"`
	UserID          string           `db:"user_id" json:"userId"`
	Type            NotificationType `db:"type" json:"type"`
	Message         string           `db:"message" json:"message"`
	RejectionReason string           `db:"rejection_reason" json:"rejectionReason,omitempty"`
	IsRead          bool             `db:"is_read" json:"isRead"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationDetail decorates a notification with the referenced job's
// snapshot. Job fields are pointers because the job reference is weak and may
// dangle after a job deletion.
type NotificationDetail struct {
	Notification
	JobCustomerName     *string           `db:"job_customer_name" json:"jobCustomerName,omitempty"`
	JobLocation         *string           `db:"job_location" json:"jobLocation,omitempty"`
	JobDate             *string           `db:"job_date" json:"jobDate,omitempty"`
	JobStatus           *JobStatus        `db:"job_status" json:"jobStatus,omitempty"`
	JobAssignmentStatus *AssignmentStatus `db:"job_assignment_status" json:"jobAssignmentStatus,omitempty"`
}
