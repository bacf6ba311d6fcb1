package models

import "time"

// StatusBreakdownRow is one slice of a status distribution. Percentage is
// formatted with one decimal place to match the dashboard contract.
type StatusBreakdownRow struct {
	Status     string `db:"status" json:"status"`
	Count      int    `db:"count" json:"count"`
	Percentage string `json:"percentage"`
}

// ContractorWorkloadRow aggregates per-contractor assignment counts.
type ContractorWorkloadRow struct {
	ContractorID   string `db:"contractor_id" json:"contractorId"`
	ContractorName string `db:"contractor_name" json:"contractorName"`
	TotalJobs      int    `db:"total_jobs" json:"totalJobs"`
	Accepted       int    `db:"accepted" json:"accepted"`
	Pending        int    `db:"pending" json:"pending"`
	Rejected       int    `db:"rejected" json:"rejected"`
}

// DateCountRow counts jobs sharing one calendar date prefix.
type DateCountRow struct {
	Date  string `db:"date" json:"date"`
	Count int    `db:"count" json:"count"`
}

// JobWithContractor is a job row joined with its assigned contractor's
// profile, used by the calendar day view.
type JobWithContractor struct {
	Job
	ContractorFirstName *string `db:"contractor_first_name" json:"contractorFirstName,omitempty"`
	ContractorLastName  *string `db:"contractor_last_name" json:"contractorLastName,omitempty"`
	ContractorEmail     *string `db:"contractor_email" json:"contractorEmail,omitempty"`
}

// AnalyticsSystemMetrics is a lightweight snapshot of service instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
