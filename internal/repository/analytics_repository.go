package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/plumbdesk/plumbdesk-api/internal/models"
)

// AnalyticsRepository runs the aggregate queries behind the dashboard
// endpoints. All queries read the jobs and users tables directly; results
// are cached a layer above.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository creates a new instance of AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// StatusBreakdown returns job counts grouped by operational status.
func (r *AnalyticsRepository) StatusBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error) {
	const query = `SELECT status, COUNT(*) AS count FROM jobs GROUP BY status ORDER BY count DESC`
	var rows []models.StatusBreakdownRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	return rows, nil
}

// AssignmentBreakdown returns counts grouped by assignment status over jobs
// that have a contractor assigned.
func (r *AnalyticsRepository) AssignmentBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error) {
	const query = `SELECT assignment_status AS status, COUNT(*) AS count FROM jobs
		WHERE employee_assigned IS NOT NULL
		GROUP BY assignment_status ORDER BY count DESC`
	var rows []models.StatusBreakdownRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("assignment breakdown: %w", err)
	}
	return rows, nil
}

// ContractorWorkload aggregates assignment counts per contractor. Contractors
// with no assignments appear with zero counts.
func (r *AnalyticsRepository) ContractorWorkload(ctx context.Context) ([]models.ContractorWorkloadRow, error) {
	const query = `SELECT u.id AS contractor_id,
			u.first_name || ' ' || u.last_name AS contractor_name,
			COUNT(j.id) AS total_jobs,
			COUNT(j.id) FILTER (WHERE j.assignment_status = 'accepted') AS accepted,
			COUNT(j.id) FILTER (WHERE j.assignment_status = 'pending') AS pending,
			COUNT(j.id) FILTER (WHERE j.assignment_status = 'rejected') AS rejected
		FROM users u
		LEFT JOIN jobs j ON j.employee_assigned = u.id
		WHERE u.role = $1
		GROUP BY u.id, u.first_name, u.last_name
		ORDER BY total_jobs DESC, contractor_name ASC`
	var rows []models.ContractorWorkloadRow
	if err := r.db.SelectContext(ctx, &rows, query, models.RoleContractor); err != nil {
		return nil, fmt.Errorf("contractor workload: %w", err)
	}
	return rows, nil
}

// JobsByDate counts jobs per calendar day. Job dates are stored as strings so
// the day is the first ten characters of the value.
func (r *AnalyticsRepository) JobsByDate(ctx context.Context) ([]models.DateCountRow, error) {
	const query = `SELECT SUBSTRING(date FROM 1 FOR 10) AS date, COUNT(*) AS count
		FROM jobs WHERE date <> ''
		GROUP BY SUBSTRING(date FROM 1 FOR 10)
		ORDER BY date ASC`
	var rows []models.DateCountRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("jobs by date: %w", err)
	}
	return rows, nil
}

// JobsForDate returns the jobs scheduled on one day with the assigned
// contractor's profile joined in.
func (r *AnalyticsRepository) JobsForDate(ctx context.Context, day string) ([]models.JobWithContractor, error) {
	const query = `SELECT j.id, j.customer_name, j.customer_phone, j.status, j.job_type, j.location, j.date,
			j.description, j.employee_assigned, j.assignment_status, j.rejection_reason, j.rejected_by,
			j.created_by, j.created_at, j.updated_at,
			u.first_name AS contractor_first_name, u.last_name AS contractor_last_name, u.email AS contractor_email
		FROM jobs j
		LEFT JOIN users u ON u.id = j.employee_assigned
		WHERE j.date LIKE $1
		ORDER BY j.created_at ASC`
	var rows []models.JobWithContractor
	if err := r.db.SelectContext(ctx, &rows, query, day+"%"); err != nil {
		return nil, fmt.Errorf("jobs for date: %w", err)
	}
	return rows, nil
}
