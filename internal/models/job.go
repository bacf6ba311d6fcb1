package models

import "time"

// JobStatus is the operational lifecycle of a job, distinct from its
// assignment status.
type JobStatus string

const (
	JobStatusActive         JobStatus = "active"
	JobStatusInProgress     JobStatus = "in progress"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusPaymentPending JobStatus = "payment pending"

	// JobStatusCancelled is a legacy value that only ever appears as a zero
	// default in aggregate views; it is not accepted on writes.
	JobStatusCancelled JobStatus = "cancelled"
)

// ValidJobStatus reports whether the status may be written to a job.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusActive, JobStatusInProgress, JobStatusCompleted, JobStatusPaymentPending:
		return true
	default:
		return false
	}
}

// JobType classifies the kind of service call.
type JobType string

const (
	JobTypeEmergency  JobType = "emergency"
	JobTypeStandard   JobType = "standard"
	JobTypePreventive JobType = "preventive"
)

// ValidJobType reports whether the job type is known.
func ValidJobType(t JobType) bool {
	switch t {
	case JobTypeEmergency, JobTypeStandard, JobTypePreventive:
		return true
	default:
		return false
	}
}

// AssignmentStatus is the lifecycle of a job's relationship to its assigned
// contractor.
type AssignmentStatus string

const (
	AssignmentUnassigned AssignmentStatus = "unassigned"
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentAccepted   AssignmentStatus = "accepted"
	AssignmentRejected   AssignmentStatus = "rejected"
)

// Job represents a service job stored in the jobs table.
//
// Invariant: AssignmentStatus is AssignmentUnassigned iff EmployeeAssigned is
// nil. CreatedBy never changes after creation.
type Job struct {
	ID               string           `db:"id" json:"id"`
	CustomerName     string           `db:"customer_name" json:"customerName"`
	CustomerPhone    string           `db:"customer_phone" json:"customerPhone"`
	Status           JobStatus        `db:"status" json:"status"`
	JobType          JobType          `db:"job_type" json:"jobType"`
	Location         string           `db:"location" json:"location"`
	Date             string           `db:"date" json:"date"`
	Description      string           `db:"description" json:"description"`
	EmployeeAssigned *string          `db:"employee_assigned" json:"employeeAssigned"`
	AssignmentStatus AssignmentStatus `db:"assignment_status" json:"assignmentStatus"`
	RejectionReason  string           `db:"rejection_reason" json:"rejectionReason"`
	RejectedBy       *string          `db:"rejected_by" json:"rejectedBy"`
	CreatedBy        string           `db:"created_by" json:"createdBy"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}

// JobFilter captures the visibility scope and query filters for job listings.
type JobFilter struct {
	ContractorID       string
	AssignmentStatuses []AssignmentStatus
	CreatedBy          string
	Status             JobStatus
	JobType            JobType
	DatePrefix         string
	Search             string
	Page               int
	PageSize           int
	RequireAssignment  bool
}

// JobStats holds per-status job counts for the caller's visible scope.
type JobStats struct {
	Active         int `json:"active"`
	InProgress     int `json:"in progress"`
	Completed      int `json:"completed"`
	PaymentPending int `json:"payment pending"`
	Cancelled      int `json:"cancelled"`
}
