package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plumbdesk/plumbdesk-api/internal/access"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type jobRepository interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
	StatusCounts(ctx context.Context, filter models.JobFilter) (map[models.JobStatus]int, error)
	Create(ctx context.Context, job *models.Job, fanout []models.Notification) error
	Update(ctx context.Context, job *models.Job, fanout []models.Notification) error
	Resolve(ctx context.Context, job *models.Job, contractorID string, fanout []models.Notification) error
	Delete(ctx context.Context, id string) error
}

type contractorLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type analyticsInvalidator interface {
	InvalidateAnalytics(ctx context.Context)
}

// CreateJobRequest is the payload for creating a job. Supplying
// employeeAssigned creates the job already in the pending assignment state.
type CreateJobRequest struct {
	CustomerName     string           `json:"customerName" validate:"required"`
	CustomerPhone    string           `json:"customerPhone" validate:"required"`
	Status           models.JobStatus `json:"status"`
	JobType          models.JobType   `json:"jobType"`
	Location         string           `json:"location" validate:"required"`
	Date             string           `json:"date" validate:"required"`
	Description      string           `json:"description"`
	EmployeeAssigned *string          `json:"employeeAssigned"`
}

// UpdateJobRequest is the payload for updating a job. Nil fields are left
// unchanged. EmployeeAssigned set to an empty string clears the assignment;
// a non-empty value reassigns the job.
type UpdateJobRequest struct {
	CustomerName     *string           `json:"customerName"`
	CustomerPhone    *string           `json:"customerPhone"`
	Status           *models.JobStatus `json:"status"`
	JobType          *models.JobType   `json:"jobType"`
	Location         *string           `json:"location"`
	Date             *string           `json:"date"`
	Description      *string           `json:"description"`
	EmployeeAssigned *string           `json:"employeeAssigned"`
}

// RejectJobRequest carries the optional rejection reason.
type RejectJobRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// JobService implements the job lifecycle and the assignment workflow. Every
// mutation that fans out notifications goes through a single transactional
// repository call so the job row and its notices commit together.
type JobService struct {
	repo      jobRepository
	users     contractorLookup
	cache     analyticsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJobService constructs a JobService instance.
func NewJobService(repo jobRepository, users contractorLookup, cache analyticsInvalidator, validate *validator.Validate, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JobService{repo: repo, users: users, cache: cache, validator: validate, logger: logger}
}

// List returns jobs within the caller's visibility scope, merged with the
// requested filters.
func (s *JobService) List(ctx context.Context, actor *models.AuthUser, filter models.JobFilter) ([]models.Job, int, error) {
	scope := access.JobScope(actor)
	scope.Status = filter.Status
	scope.JobType = filter.JobType
	scope.DatePrefix = filter.DatePrefix
	scope.Search = filter.Search
	scope.Page = filter.Page
	scope.PageSize = filter.PageSize

	jobs, total, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs")
	}
	return jobs, total, nil
}

// Get returns one job. Jobs outside the caller's scope read as not found so
// contractors cannot probe other assignments.
func (s *JobService) Get(ctx context.Context, actor *models.AuthUser, id string) (*models.Job, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.JobVisible(actor, job) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	return job, nil
}

// Stats aggregates job counts per status within the caller's scope. The
// legacy cancelled status always appears, defaulting to zero.
func (s *JobService) Stats(ctx context.Context, actor *models.AuthUser) (*models.JobStats, error) {
	counts, err := s.repo.StatusCounts(ctx, access.JobScope(actor))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate job stats")
	}

	return &models.JobStats{
		Active:         counts[models.JobStatusActive],
		InProgress:     counts[models.JobStatusInProgress],
		Completed:      counts[models.JobStatusCompleted],
		PaymentPending: counts[models.JobStatusPaymentPending],
		Cancelled:      counts[models.JobStatusCancelled],
	}, nil
}

// Create adds a job. Assigning a contractor at creation starts the job in
// the pending assignment state and notifies the contractor.
func (s *JobService) Create(ctx context.Context, actor *models.AuthUser, req CreateJobRequest) (*models.Job, error) {
	if !access.Can(actor.Role, access.ActionCreateJobs) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create jobs")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}

	status := req.Status
	if status == "" {
		status = models.JobStatusActive
	}
	if !models.ValidJobStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown job status")
	}
	jobType := req.JobType
	if jobType == "" {
		jobType = models.JobTypeStandard
	}
	if !models.ValidJobType(jobType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown job type")
	}

	job := &models.Job{
		ID:               uuid.NewString(),
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		Status:           status,
		JobType:          jobType,
		Location:         req.Location,
		Date:             req.Date,
		Description:      req.Description,
		AssignmentStatus: models.AssignmentUnassigned,
		CreatedBy:        actor.ID,
	}

	var fanout []models.Notification
	if req.EmployeeAssigned != nil && *req.EmployeeAssigned != "" {
		contractor, err := s.lookupContractor(ctx, *req.EmployeeAssigned)
		if err != nil {
			return nil, err
		}
		job.EmployeeAssigned = &contractor.ID
		job.AssignmentStatus = models.AssignmentPending
		fanout = append(fanout, assignmentNotice(job, contractor.ID))
	}

	if err := s.repo.Create(ctx, job, fanout); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job")
	}

	s.invalidate(ctx)
	return job, nil
}

// Update applies edits to a job and runs the assignment workflow. Reassigning
// always resets the assignment to pending and clears rejection metadata; a
// transition into payment pending notifies the job creator.
func (s *JobService) Update(ctx context.Context, actor *models.AuthUser, id string, req UpdateJobRequest) (*models.Job, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanEditJob(actor, job) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this job")
	}

	previousStatus := job.Status

	if req.CustomerName != nil {
		if *req.CustomerName == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "customer name cannot be empty")
		}
		job.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		if *req.CustomerPhone == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "customer phone cannot be empty")
		}
		job.CustomerPhone = *req.CustomerPhone
	}
	if req.Status != nil {
		if !models.ValidJobStatus(*req.Status) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown job status")
		}
		job.Status = *req.Status
	}
	if req.JobType != nil {
		if !models.ValidJobType(*req.JobType) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown job type")
		}
		job.JobType = *req.JobType
	}
	if req.Location != nil {
		if *req.Location == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "location cannot be empty")
		}
		job.Location = *req.Location
	}
	if req.Date != nil {
		job.Date = *req.Date
	}
	if req.Description != nil {
		job.Description = *req.Description
	}

	var fanout []models.Notification
	if req.EmployeeAssigned != nil {
		notify, err := s.applyAssignment(ctx, job, *req.EmployeeAssigned)
		if err != nil {
			return nil, err
		}
		if notify {
			fanout = append(fanout, assignmentNotice(job, *job.EmployeeAssigned))
		}
	}

	if job.Status == models.JobStatusPaymentPending && previousStatus != models.JobStatusPaymentPending {
		fanout = append(fanout, models.Notification{
			JobID:   job.ID,
			UserID:  job.CreatedBy,
			Type:    models.NotificationJobAssigned,
			Message: fmt.Sprintf("Job for %s was marked payment pending by %s %s", job.CustomerName, actor.FirstName, actor.LastName),
		})
	}

	if err := s.repo.Update(ctx, job, fanout); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update job")
	}

	s.invalidate(ctx)
	return job, nil
}

// Accept records a contractor's acceptance of a pending assignment.
func (s *JobService) Accept(ctx context.Context, actor *models.AuthUser, id string) (*models.Job, error) {
	job, err := s.resolvableJob(ctx, actor, id, access.ActionAcceptJobs)
	if err != nil {
		return nil, err
	}

	job.AssignmentStatus = models.AssignmentAccepted
	if err := s.repo.Resolve(ctx, job, actor.ID, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept job")
	}

	s.invalidate(ctx)
	return job, nil
}

// Reject records a contractor's rejection of a pending assignment and
// notifies the job creator with the reason.
func (s *JobService) Reject(ctx context.Context, actor *models.AuthUser, id string, req RejectJobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	job, err := s.resolvableJob(ctx, actor, id, access.ActionRejectJobs)
	if err != nil {
		return nil, err
	}

	job.AssignmentStatus = models.AssignmentRejected
	job.RejectionReason = req.Reason
	job.RejectedBy = &actor.ID

	fanout := []models.Notification{{
		JobID:           job.ID,
		UserID:          job.CreatedBy,
		Type:            models.NotificationJobRejected,
		Message:         fmt.Sprintf("%s %s rejected the job for %s", actor.FirstName, actor.LastName, job.CustomerName),
		RejectionReason: req.Reason,
	}}

	if err := s.repo.Resolve(ctx, job, actor.ID, fanout); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject job")
	}

	s.invalidate(ctx)
	return job, nil
}

// Delete removes a job. Notifications and messages that reference it survive
// as dangling references.
func (s *JobService) Delete(ctx context.Context, actor *models.AuthUser, id string) error {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanDeleteJob(actor, job) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this job")
	}

	if err := s.repo.Delete(ctx, job.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete job")
	}

	s.invalidate(ctx)
	return nil
}

// applyAssignment mutates the job's assignment fields for the requested
// assignee and reports whether the contractor should be notified. An empty
// assignee clears the assignment.
func (s *JobService) applyAssignment(ctx context.Context, job *models.Job, assignee string) (bool, error) {
	if assignee == "" {
		job.EmployeeAssigned = nil
		job.AssignmentStatus = models.AssignmentUnassigned
		job.RejectionReason = ""
		job.RejectedBy = nil
		return false, nil
	}

	if job.EmployeeAssigned != nil && *job.EmployeeAssigned == assignee {
		return false, nil
	}

	contractor, err := s.lookupContractor(ctx, assignee)
	if err != nil {
		return false, err
	}

	job.EmployeeAssigned = &contractor.ID
	job.AssignmentStatus = models.AssignmentPending
	job.RejectionReason = ""
	job.RejectedBy = nil
	return true, nil
}

func (s *JobService) resolvableJob(ctx context.Context, actor *models.AuthUser, id string, action access.Action) (*models.Job, error) {
	if !access.Can(actor.Role, action) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only contractors may respond to assignments")
	}

	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.EmployeeAssigned == nil || *job.EmployeeAssigned != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "job is not assigned to you")
	}
	if job.AssignmentStatus != models.AssignmentPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("assignment is %s, only pending assignments can be resolved", job.AssignmentStatus))
	}
	return job, nil
}

func (s *JobService) lookupContractor(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assigned contractor does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contractor")
	}
	if user.Role != models.RoleContractor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jobs can only be assigned to contractors")
	}
	return user, nil
}

func (s *JobService) loadJob(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	return job, nil
}

func (s *JobService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAnalytics(ctx)
	}
}

func assignmentNotice(job *models.Job, contractorID string) models.Notification {
	return models.Notification{
		JobID:   job.ID,
		UserID:  contractorID,
		Type:    models.NotificationJobAssigned,
		Message: fmt.Sprintf("You have been assigned a %s job for %s at %s", job.JobType, job.CustomerName, job.Location),
	}
}
