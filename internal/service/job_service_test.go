package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type mockJobRepo struct {
	jobs map[string]*models.Job

	createdJob    *models.Job
	createdFanout []models.Notification
	updatedJob    *models.Job
	updatedFanout []models.Notification

	resolvedJob        *models.Job
	resolvedContractor string
	resolvedFanout     []models.Notification

	deletedID string

	statusCounts map[models.JobStatus]int
	listJobs     []models.Job
	listTotal    int
	lastFilter   models.JobFilter
	err          error
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*models.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *mockJobRepo) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	m.lastFilter = filter
	return m.listJobs, m.listTotal, m.err
}

func (m *mockJobRepo) StatusCounts(ctx context.Context, filter models.JobFilter) (map[models.JobStatus]int, error) {
	m.lastFilter = filter
	return m.statusCounts, m.err
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job, fanout []models.Notification) error {
	m.createdJob = job
	m.createdFanout = fanout
	return m.err
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.Job, fanout []models.Notification) error {
	m.updatedJob = job
	m.updatedFanout = fanout
	return m.err
}

func (m *mockJobRepo) Resolve(ctx context.Context, job *models.Job, contractorID string, fanout []models.Notification) error {
	m.resolvedJob = job
	m.resolvedContractor = contractorID
	m.resolvedFanout = fanout
	return m.err
}

func (m *mockJobRepo) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateAnalytics(ctx context.Context) {
	m.calls++
}

func strPtr(s string) *string { return &s }

func newJobService(repo *mockJobRepo, users *mockUserLookup, cache *mockInvalidator) *JobService {
	return NewJobService(repo, users, cache, nil, nil)
}

func staffUser(role models.UserRole) *models.AuthUser {
	return &models.AuthUser{ID: "staff-1", FirstName: "Dana", LastName: "Reyes", Role: role}
}

func contractorUser(id string) *models.AuthUser {
	return &models.AuthUser{ID: id, FirstName: "Milo", LastName: "Vance", Role: models.RoleContractor}
}

func contractorRecord(id string) *models.User {
	return &models.User{ID: id, FirstName: "Milo", LastName: "Vance", Role: models.RoleContractor}
}

func TestCreateJobUnassigned(t *testing.T) {
	repo := &mockJobRepo{}
	cache := &mockInvalidator{}
	svc := newJobService(repo, &mockUserLookup{}, cache)

	job, err := svc.Create(context.Background(), staffUser(models.RoleReceptionist), CreateJobRequest{
		CustomerName:  "Ada Byrne",
		CustomerPhone: "555-0100",
		Location:      "12 Pipe Lane",
		Date:          "2026-09-01",
	})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentUnassigned, job.AssignmentStatus)
	assert.Nil(t, job.EmployeeAssigned)
	assert.Equal(t, models.JobStatusActive, job.Status)
	assert.Equal(t, models.JobTypeStandard, job.JobType)
	assert.Equal(t, "staff-1", job.CreatedBy)
	assert.Empty(t, repo.createdFanout)
	assert.Equal(t, 1, cache.calls)
}

func TestCreateJobWithAssignmentNotifiesContractor(t *testing.T) {
	repo := &mockJobRepo{}
	users := &mockUserLookup{users: map[string]*models.User{"c1": contractorRecord("c1")}}
	svc := newJobService(repo, users, &mockInvalidator{})

	job, err := svc.Create(context.Background(), staffUser(models.RoleAdmin), CreateJobRequest{
		CustomerName:     "Ada Byrne",
		CustomerPhone:    "555-0100",
		Location:         "12 Pipe Lane",
		Date:             "2026-09-01",
		JobType:          models.JobTypeEmergency,
		EmployeeAssigned: strPtr("c1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentPending, job.AssignmentStatus)
	require.NotNil(t, job.EmployeeAssigned)
	assert.Equal(t, "c1", *job.EmployeeAssigned)

	require.Len(t, repo.createdFanout, 1)
	notice := repo.createdFanout[0]
	assert.Equal(t, models.NotificationJobAssigned, notice.Type)
	assert.Equal(t, "c1", notice.UserID)
}

func TestCreateJobAssignmentRequiresContractorRole(t *testing.T) {
	users := &mockUserLookup{users: map[string]*models.User{
		"r1": {ID: "r1", Role: models.RoleReceptionist},
	}}
	svc := newJobService(&mockJobRepo{}, users, &mockInvalidator{})

	_, err := svc.Create(context.Background(), staffUser(models.RoleAdmin), CreateJobRequest{
		CustomerName:     "Ada Byrne",
		CustomerPhone:    "555-0100",
		Location:         "12 Pipe Lane",
		Date:             "2026-09-01",
		EmployeeAssigned: strPtr("r1"),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateJobRequiresCustomerPhone(t *testing.T) {
	repo := &mockJobRepo{}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	_, err := svc.Create(context.Background(), staffUser(models.RoleReceptionist), CreateJobRequest{
		CustomerName: "Ada Byrne",
		Location:     "12 Pipe Lane",
		Date:         "2026-09-01",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, repo.createdJob)
}

func TestUpdateCannotEmptyCustomerPhone(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", CustomerPhone: "555-0100", Status: models.JobStatusActive, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	_, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{CustomerPhone: strPtr("")})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, repo.updatedJob)
}

func TestContractorsCannotCreateJobs(t *testing.T) {
	svc := newJobService(&mockJobRepo{}, &mockUserLookup{}, &mockInvalidator{})

	_, err := svc.Create(context.Background(), contractorUser("c1"), CreateJobRequest{
		CustomerName:  "Ada Byrne",
		CustomerPhone: "555-0100",
		Location:      "12 Pipe Lane",
		Date:          "2026-09-01",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAcceptPendingAssignment(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentPending, CreatedBy: "staff-1"},
	}}
	cache := &mockInvalidator{}
	svc := newJobService(repo, &mockUserLookup{}, cache)

	job, err := svc.Accept(context.Background(), contractorUser("c1"), "j1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentAccepted, job.AssignmentStatus)
	assert.Equal(t, "c1", repo.resolvedContractor)
	assert.Empty(t, repo.resolvedFanout)
	assert.Equal(t, 1, cache.calls)
}

func TestAcceptNonPendingAssignmentIsInvalidState(t *testing.T) {
	for _, status := range []models.AssignmentStatus{models.AssignmentAccepted, models.AssignmentRejected} {
		repo := &mockJobRepo{jobs: map[string]*models.Job{
			"j1": {ID: "j1", EmployeeAssigned: strPtr("c1"), AssignmentStatus: status},
		}}
		svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

		_, err := svc.Accept(context.Background(), contractorUser("c1"), "j1")
		require.Error(t, err)

		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
		assert.Equal(t, 400, appErr.Status)
	}
}

func TestAcceptByOtherContractorForbidden(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentPending},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	_, err := svc.Accept(context.Background(), contractorUser("c2"), "j1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRejectRecordsReasonAndNotifiesCreator(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentPending, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	job, err := svc.Reject(context.Background(), contractorUser("c1"), "j1", RejectJobRequest{Reason: "double booked"})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentRejected, job.AssignmentStatus)
	assert.Equal(t, "double booked", job.RejectionReason)
	require.NotNil(t, job.RejectedBy)
	assert.Equal(t, "c1", *job.RejectedBy)

	require.Len(t, repo.resolvedFanout, 1)
	notice := repo.resolvedFanout[0]
	assert.Equal(t, models.NotificationJobRejected, notice.Type)
	assert.Equal(t, "staff-1", notice.UserID)
	assert.Equal(t, "double booked", notice.RejectionReason)
	assert.Equal(t, "c1", repo.resolvedContractor)
}

func TestReassignmentResetsToPendingAndClearsRejection(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {
			ID:               "j1",
			CustomerName:     "Ada Byrne",
			Location:         "12 Pipe Lane",
			EmployeeAssigned: strPtr("c1"),
			AssignmentStatus: models.AssignmentRejected,
			RejectionReason:  "double booked",
			RejectedBy:       strPtr("c1"),
			CreatedBy:        "staff-1",
		},
	}}
	users := &mockUserLookup{users: map[string]*models.User{"c2": contractorRecord("c2")}}
	svc := newJobService(repo, users, &mockInvalidator{})

	job, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{
		EmployeeAssigned: strPtr("c2"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentPending, job.AssignmentStatus)
	assert.Equal(t, "c2", *job.EmployeeAssigned)
	assert.Empty(t, job.RejectionReason)
	assert.Nil(t, job.RejectedBy)

	require.Len(t, repo.updatedFanout, 1)
	assert.Equal(t, "c2", repo.updatedFanout[0].UserID)
	assert.Equal(t, models.NotificationJobAssigned, repo.updatedFanout[0].Type)
}

func TestClearingAssignmentUnassigns(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {
			ID:               "j1",
			CustomerName:     "Ada Byrne",
			EmployeeAssigned: strPtr("c1"),
			AssignmentStatus: models.AssignmentRejected,
			RejectionReason:  "double booked",
			RejectedBy:       strPtr("c1"),
			CreatedBy:        "staff-1",
		},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	job, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{
		EmployeeAssigned: strPtr(""),
	})
	require.NoError(t, err)

	assert.Nil(t, job.EmployeeAssigned)
	assert.Equal(t, models.AssignmentUnassigned, job.AssignmentStatus)
	assert.Empty(t, job.RejectionReason)
	assert.Nil(t, job.RejectedBy)
	assert.Empty(t, repo.updatedFanout)
}

func TestSameContractorReassignmentDoesNotRenotify(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentAccepted, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	job, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{
		EmployeeAssigned: strPtr("c1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentAccepted, job.AssignmentStatus)
	assert.Empty(t, repo.updatedFanout)
}

func TestPaymentPendingTransitionNotifiesCreator(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", Status: models.JobStatusInProgress, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	paymentPending := models.JobStatusPaymentPending
	_, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{
		Status: &paymentPending,
	})
	require.NoError(t, err)

	require.Len(t, repo.updatedFanout, 1)
	assert.Equal(t, "staff-1", repo.updatedFanout[0].UserID)
}

func TestPaymentPendingNoSelfTransitionFanout(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", Status: models.JobStatusPaymentPending, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	paymentPending := models.JobStatusPaymentPending
	_, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{
		Status: &paymentPending,
	})
	require.NoError(t, err)
	assert.Empty(t, repo.updatedFanout)
}

func TestCancelledStatusNotWritable(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", Status: models.JobStatusActive, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	cancelled := models.JobStatusCancelled
	_, err := svc.Update(context.Background(), staffUser(models.RoleAdmin), "j1", UpdateJobRequest{Status: &cancelled})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestContractorCannotEditPendingJob(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentPending, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	desc := "rerouted main line"
	_, err := svc.Update(context.Background(), contractorUser("c1"), "j1", UpdateJobRequest{Description: &desc})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestContractorCanEditAcceptedJob(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CustomerName: "Ada Byrne", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentAccepted, CreatedBy: "staff-1"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	desc := "rerouted main line"
	job, err := svc.Update(context.Background(), contractorUser("c1"), "j1", UpdateJobRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "rerouted main line", job.Description)
}

func TestGetOutsideScopeReadsAsNotFound(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", EmployeeAssigned: strPtr("c1"), AssignmentStatus: models.AssignmentRejected},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	_, err := svc.Get(context.Background(), contractorUser("c1"), "j1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestListScopesContractorToOwnPendingAndAccepted(t *testing.T) {
	repo := &mockJobRepo{}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	_, _, err := svc.List(context.Background(), contractorUser("c1"), models.JobFilter{})
	require.NoError(t, err)

	assert.Equal(t, "c1", repo.lastFilter.ContractorID)
	assert.ElementsMatch(t, []models.AssignmentStatus{models.AssignmentPending, models.AssignmentAccepted}, repo.lastFilter.AssignmentStatuses)
}

func TestStatsIncludesCancelledZeroDefault(t *testing.T) {
	repo := &mockJobRepo{statusCounts: map[models.JobStatus]int{
		models.JobStatusActive:    3,
		models.JobStatusCompleted: 2,
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	stats, err := svc.Stats(context.Background(), staffUser(models.RoleAdmin))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Active)
	assert.Equal(t, 2, stats.Completed)
	assert.Zero(t, stats.InProgress)
	assert.Zero(t, stats.PaymentPending)
	assert.Zero(t, stats.Cancelled)
}

func TestDeleteByCreator(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CreatedBy: "staff-1"},
	}}
	cache := &mockInvalidator{}
	svc := newJobService(repo, &mockUserLookup{}, cache)

	err := svc.Delete(context.Background(), staffUser(models.RoleReceptionist), "j1")
	require.NoError(t, err)
	assert.Equal(t, "j1", repo.deletedID)
	assert.Equal(t, 1, cache.calls)
}

func TestReceptionistCannotDeleteOthersJob(t *testing.T) {
	repo := &mockJobRepo{jobs: map[string]*models.Job{
		"j1": {ID: "j1", CreatedBy: "someone-else"},
	}}
	svc := newJobService(repo, &mockUserLookup{}, &mockInvalidator{})

	err := svc.Delete(context.Background(), staffUser(models.RoleReceptionist), "j1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
