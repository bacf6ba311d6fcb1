package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

const jobColumns = "id, customer_name, customer_phone, status, job_type, location, date, description, employee_assigned, assignment_status, rejection_reason, rejected_by, created_by, created_at, updated_at"

// JobRepository provides persistence for jobs. Mutations that fan out
// notifications run inside a single transaction so a job update and its
// notices commit or roll back together.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new instance of JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// FindByID returns a job by identifier.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = $1 LIMIT 1", jobColumns)
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return &job, nil
}

// List returns jobs matching the filter with total count, newest first.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	baseQuery, args := buildJobWhere(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", jobColumns, baseQuery, pageSize, offset)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	return jobs, total, nil
}

// StatusCounts aggregates job counts per status within the filter scope.
func (r *JobRepository) StatusCounts(ctx context.Context, filter models.JobFilter) (map[models.JobStatus]int, error) {
	baseQuery, args := buildJobWhere(filter)
	query := fmt.Sprintf("SELECT status, COUNT(*) AS count %s GROUP BY status", baseQuery)

	var rows []struct {
		Status models.JobStatus `db:"status"`
		Count  int              `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("job status counts: %w", err)
	}

	counts := make(map[models.JobStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Create inserts a job and, when the creation carries an assignment, the
// fan-out notifications in the same transaction.
func (r *JobRepository) Create(ctx context.Context, job *models.Job, fanout []models.Notification) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create job: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO jobs (id, customer_name, customer_phone, status, job_type, location, date, description, employee_assigned, assignment_status, rejection_reason, rejected_by, created_by, created_at, updated_at)
		VALUES (:id, :customer_name, :customer_phone, :status, :job_type, :location, :date, :description, :employee_assigned, :assignment_status, :rejection_reason, :rejected_by, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	if err := insertNotifications(ctx, tx, job.ID, fanout); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create job: %w", err)
	}
	return nil
}

// Update persists the job's mutable fields together with any fan-out
// notifications the mutation triggered.
func (r *JobRepository) Update(ctx context.Context, job *models.Job, fanout []models.Notification) error {
	job.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update job: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE jobs SET customer_name = :customer_name, customer_phone = :customer_phone, status = :status, job_type = :job_type, location = :location, date = :date, description = :description, employee_assigned = :employee_assigned, assignment_status = :assignment_status, rejection_reason = :rejection_reason, rejected_by = :rejected_by, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	if err := insertNotifications(ctx, tx, job.ID, fanout); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update job: %w", err)
	}
	return nil
}

// Resolve applies an accept/reject outcome: it updates the assignment fields,
// marks the contractor's originating job_assigned notifications read and
// inserts any new fan-out, all in one transaction.
func (r *JobRepository) Resolve(ctx context.Context, job *models.Job, contractorID string, fanout []models.Notification) error {
	job.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve job: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE jobs SET assignment_status = :assignment_status, rejection_reason = :rejection_reason, rejected_by = :rejected_by, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("resolve job: %w", err)
	}

	if contractorID != "" {
		const markQuery = `UPDATE notifications SET is_read = TRUE WHERE job_id = $1 AND user_id = $2 AND type = $3 AND is_read = FALSE`
		if _, err := tx.ExecContext(ctx, markQuery, job.ID, contractorID, models.NotificationJobAssigned); err != nil {
			return fmt.Errorf("mark notifications read: %w", err)
		}
	}

	if err := insertNotifications(ctx, tx, job.ID, fanout); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve job: %w", err)
	}
	return nil
}

// Delete removes a job. Notifications and messages referencing it are left in
// place; read paths tolerate the dangling reference.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM jobs WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func insertNotifications(ctx context.Context, tx *sqlx.Tx, jobID string, fanout []models.Notification) error {
	const query = `INSERT INTO notifications (id, job_id, user_id, type, message, rejection_reason, is_read, created_at)
		VALUES (:id, :job_id, :user_id, :type, :message, :rejection_reason, :is_read, :created_at)`
	for i := range fanout {
		n := &fanout[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.JobID == "" {
			n.JobID = jobID
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

func buildJobWhere(filter models.JobFilter) (string, []interface{}) {
	baseQuery := "FROM jobs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ContractorID != "" {
		args = append(args, filter.ContractorID)
		conditions = append(conditions, fmt.Sprintf("employee_assigned = $%d", len(args)))
	}
	if len(filter.AssignmentStatuses) > 0 {
		placeholders := make([]string, len(filter.AssignmentStatuses))
		for i, status := range filter.AssignmentStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("assignment_status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.JobType != "" {
		args = append(args, filter.JobType)
		conditions = append(conditions, fmt.Sprintf("job_type = $%d", len(args)))
	}
	if filter.DatePrefix != "" {
		args = append(args, filter.DatePrefix+"%")
		conditions = append(conditions, fmt.Sprintf("date LIKE $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(customer_name) LIKE $%d OR LOWER(location) LIKE $%d)", len(args), len(args)))
	}
	if filter.RequireAssignment {
		conditions = append(conditions, "employee_assigned IS NOT NULL")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	return baseQuery, args
}
