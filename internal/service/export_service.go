package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/report-workflow-api/internal/models"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
	"github.com/noah-isme/report-workflow-api/pkg/export"
)

// ExportFormat enumerates supported export encodings.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes with response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	FileName    string
}

// ExportService renders role-scoped report listings as downloadable files.
type ExportService struct {
	reports reportLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService creates a service instance.
func NewExportService(reports reportLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

var reportExportHeaders = []string{"Student", "Registration No", "Title", "Stage", "Status", "Version", "Submitted"}

// Reports renders the caller's report listing in the requested format. Role
// scoping matches the review listing: supervisors see their own reports, HODs
// their department.
func (s *ExportService) Reports(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter, format ExportFormat) (*ExportResult, error) {
	switch actor.Role {
	case models.RoleSupervisor:
		filter.SupervisorID = actor.UserID
	case models.RoleHOD:
		filter.Department = actor.Department
	}
	filter.Page = 1
	if filter.PageSize <= 0 {
		filter.PageSize = 100
	}

	reports, _, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports for export")
	}

	dataset := export.Dataset{Headers: reportExportHeaders}
	for _, report := range reports {
		registration := ""
		if report.RegistrationNumber != nil {
			registration = *report.RegistrationNumber
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":         report.StudentName,
			"Registration No": registration,
			"Title":           report.Title,
			"Stage":           string(report.ReportStage),
			"Status":          string(report.Status),
			"Version":         strconv.Itoa(report.Version),
			"Submitted":       report.SubmittedAt.Format("2006-01-02 15:04"),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			FileName:    fmt.Sprintf("reports-%s.csv", stamp),
		}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, "Report Listing")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			FileName:    fmt.Sprintf("reports-%s.pdf", stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
