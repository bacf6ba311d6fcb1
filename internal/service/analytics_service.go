package service

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/plumbdesk/plumbdesk-api/internal/access"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
)

type analyticsRepository interface {
	StatusBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error)
	AssignmentBreakdown(ctx context.Context) ([]models.StatusBreakdownRow, error)
	ContractorWorkload(ctx context.Context) ([]models.ContractorWorkloadRow, error)
	JobsByDate(ctx context.Context) ([]models.DateCountRow, error)
	JobsForDate(ctx context.Context, day string) ([]models.JobWithContractor, error)
}

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// AnalyticsService serves the dashboard aggregates, caching each payload in
// Redis until the next job mutation invalidates the namespace.
type AnalyticsService struct {
	repo    analyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an AnalyticsService instance.
func NewAnalyticsService(repo analyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// JobStatusBreakdown returns job counts and percentages per status.
func (s *AnalyticsService) JobStatusBreakdown(ctx context.Context, actor *models.AuthUser) ([]models.StatusBreakdownRow, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	key := AnalyticsKeyPrefix + "job-status"
	var cached []models.StatusBreakdownRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.StatusBreakdown(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status breakdown")
	}
	withPercentages(rows)

	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// AssignmentStatusBreakdown returns counts per assignment status over jobs
// that have a contractor.
func (s *AnalyticsService) AssignmentStatusBreakdown(ctx context.Context, actor *models.AuthUser) ([]models.StatusBreakdownRow, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	key := AnalyticsKeyPrefix + "assignment-status"
	var cached []models.StatusBreakdownRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.AssignmentBreakdown(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment breakdown")
	}
	withPercentages(rows)

	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// ContractorWorkload returns per-contractor assignment aggregates.
func (s *AnalyticsService) ContractorWorkload(ctx context.Context, actor *models.AuthUser) ([]models.ContractorWorkloadRow, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	key := AnalyticsKeyPrefix + "contractor-workload"
	var cached []models.ContractorWorkloadRow
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.ContractorWorkload(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contractor workload")
	}

	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// JobsByDate returns a map of YYYY-MM-DD date keys to job counts.
func (s *AnalyticsService) JobsByDate(ctx context.Context, actor *models.AuthUser) (map[string]int, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	key := AnalyticsKeyPrefix + "jobs-by-date"
	var cached map[string]int
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.JobsByDate(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jobs by date")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Date] = row.Count
	}

	_ = s.cache.Set(ctx, key, counts, 0)
	return counts, nil
}

// JobsForDate returns the jobs scheduled on one calendar day.
func (s *AnalyticsService) JobsForDate(ctx context.Context, actor *models.AuthUser, day string) ([]models.JobWithContractor, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if !dayPattern.MatchString(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	key := AnalyticsKeyPrefix + "jobs-for-date:" + day
	var cached []models.JobWithContractor
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.JobsForDate(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jobs for date")
	}

	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

// SystemMetrics returns the live instrumentation snapshot. Never cached.
func (s *AnalyticsService) SystemMetrics(ctx context.Context, actor *models.AuthUser) (models.AnalyticsSystemMetrics, error) {
	if err := s.authorize(actor); err != nil {
		return models.AnalyticsSystemMetrics{}, err
	}
	return s.metrics.Snapshot(), nil
}

func (s *AnalyticsService) authorize(actor *models.AuthUser) error {
	if !access.Can(actor.Role, access.ActionViewAnalytics) {
		return appErrors.Clone(appErrors.ErrForbidden, "analytics are admin only")
	}
	return nil
}

func withPercentages(rows []models.StatusBreakdownRow) {
	total := 0
	for _, row := range rows {
		total += row.Count
	}
	for i := range rows {
		if total == 0 {
			rows[i].Percentage = "0.0"
			continue
		}
		rows[i].Percentage = fmt.Sprintf("%.1f", float64(rows[i].Count)*100/float64(total))
	}
}
