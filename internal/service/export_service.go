package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plumbdesk/plumbdesk-api/internal/access"
	"github.com/plumbdesk/plumbdesk-api/internal/models"
	appErrors "github.com/plumbdesk/plumbdesk-api/pkg/errors"
	"github.com/plumbdesk/plumbdesk-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered export ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the caller's visible jobs as CSV or PDF downloads.
type ExportService struct {
	jobs   jobRepository
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(jobs jobRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{jobs: jobs, csv: csv, pdf: pdf, logger: logger}
}

// ExportJobs renders every job in the caller's scope in the requested format.
func (s *ExportService) ExportJobs(ctx context.Context, actor *models.AuthUser, format string) (*ExportResult, error) {
	if !access.Can(actor.Role, access.ActionExportJobs) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to export jobs")
	}

	scope := access.JobScope(actor)
	scope.PageSize = 100

	var all []models.Job
	for page := 1; ; page++ {
		scope.Page = page
		jobs, total, err := s.jobs.List(ctx, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jobs for export")
		}
		all = append(all, jobs...)
		if len(all) >= total || len(jobs) == 0 {
			break
		}
	}

	dataset := jobsDataset(all)
	stamp := time.Now().UTC().Format("2006-01-02")

	switch strings.ToLower(format) {
	case "csv", "":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("jobs-%s.csv", stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Job Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("jobs-%s.pdf", stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func jobsDataset(jobs []models.Job) export.Dataset {
	headers := []string{"Customer", "Phone", "Status", "Type", "Location", "Date", "Assignment", "Created"}
	rows := make([]map[string]string, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		rows = append(rows, map[string]string{
			"Customer":   job.CustomerName,
			"Phone":      job.CustomerPhone,
			"Status":     string(job.Status),
			"Type":       string(job.JobType),
			"Location":   job.Location,
			"Date":       job.Date,
			"Assignment": string(job.AssignmentStatus),
			"Created":    job.CreatedAt.Format("2006-01-02"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
