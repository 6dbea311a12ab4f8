package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/report-workflow-api/internal/models"
	"github.com/noah-isme/report-workflow-api/internal/service"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
	"github.com/noah-isme/report-workflow-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report workflow services.
type ReportHandler struct {
	reports  *service.ReportService
	feedback *service.FeedbackService
	exports  *service.ExportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(reports *service.ReportService, feedback *service.FeedbackService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, feedback: feedback, exports: exports}
}

// Submit godoc
// @Summary Submit report
// @Description Upload a report file and create a version-1 pending report
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Report title"
// @Param report_stage formData string true "Report stage"
// @Param file formData file true "Report file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	req := service.SubmitReportRequest{
		Title: c.PostForm("title"),
		Stage: models.ReportStage(c.PostForm("report_stage")),
	}

	upload, cleanup, err := h.receiveUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	report, err := h.reports.Submit(c.Request.Context(), claimsFromContext(c), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, report)
}

// Reupload godoc
// @Summary Reupload report file
// @Description Replace the file on a report whose status allows reupload; the version increments in place
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param file formData file true "Report file"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/reupload [put]
func (h *ReportHandler) Reupload(c *gin.Context) {
	upload, cleanup, err := h.receiveUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	report, err := h.reports.Reupload(c.Request.Context(), c.Param("id"), claimsFromContext(c), upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}

// ListMine godoc
// @Summary List own reports
// @Description List the authenticated student's reports, newest first
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/mine [get]
func (h *ReportHandler) ListMine(c *gin.Context) {
	reports, err := h.reports.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, nil)
}

// History godoc
// @Summary Report version history
// @Description List the version lineage for a title and stage, newest version first
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param title query string true "Report title"
// @Param report_stage query string true "Report stage"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/history [get]
func (h *ReportHandler) History(c *gin.Context) {
	reports, err := h.reports.History(c.Request.Context(), claimsFromContext(c), c.Query("title"), models.ReportStage(c.Query("report_stage")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, nil)
}

// List godoc
// @Summary List reports for review
// @Description List reports scoped to the caller's role with filtering and pagination
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param report_stage query string false "Filter by stage"
// @Param search query string false "Search title, student name or registration number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	filter := reportFilterFromQuery(c)

	reports, total, err := h.reports.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reports, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get report
// @Description Return one report with student identity and both feedback threads
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	detail, err := h.reports.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	feedback, hodFeedback, err := h.feedback.ListForReport(c.Request.Context(), detail.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"report":       detail,
		"feedback":     feedback,
		"hod_feedback": hodFeedback,
	}, nil)
}

// PostFeedback godoc
// @Summary Post supervisor feedback
// @Description Record feedback on a supervised report and apply the action's status transition
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body service.PostFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/feedback [post]
func (h *ReportHandler) PostFeedback(c *gin.Context) {
	var req service.PostFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	feedback, err := h.feedback.PostFeedback(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, feedback)
}

// AdvanceStage godoc
// @Summary Advance report stage
// @Description Move a supervised report to the next stage and reset its status to pending
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports/{id}/next-stage [post]
func (h *ReportHandler) AdvanceStage(c *gin.Context) {
	report, err := h.feedback.AdvanceStage(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}

// PostHODFeedback godoc
// @Summary Post HOD feedback
// @Description Record a department-head comment on a report in the caller's department
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body service.PostHODFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id}/hod-feedback [post]
func (h *ReportHandler) PostHODFeedback(c *gin.Context) {
	var req service.PostHODFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	feedback, err := h.feedback.PostHODFeedback(c.Request.Context(), c.Param("id"), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, feedback)
}

// Export godoc
// @Summary Export report listing
// @Description Download the caller's report listing as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter := reportFilterFromQuery(c)
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.Reports(c.Request.Context(), claimsFromContext(c), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func reportFilterFromQuery(c *gin.Context) models.ReportFilter {
	filter := models.ReportFilter{Search: c.Query("search")}
	if status := c.Query("status"); status != "" {
		s := models.ReportStatus(status)
		filter.Status = &s
	}
	if stage := c.Query("report_stage"); stage != "" {
		st := models.ReportStage(stage)
		filter.Stage = &st
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter
}

// receiveUpload spools the multipart file to a temp path. The returned cleanup
// removes the temp file when the service did not consume it.
func (h *ReportHandler) receiveUpload(c *gin.Context) (service.UploadInput, func(), error) {
	file, err := c.FormFile("file")
	if err != nil {
		return service.UploadInput{}, func() {}, appErrors.Clone(appErrors.ErrValidation, "report file is required")
	}

	tempPath := filepath.Join(os.TempDir(), "upload-"+uuid.NewString())
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		return service.UploadInput{}, func() {}, appErrors.Wrap(err, appErrors.ErrStorageFailure.Code, appErrors.ErrStorageFailure.Status, "failed to receive uploaded file")
	}

	cleanup := func() {
		if _, statErr := os.Stat(tempPath); statErr == nil {
			_ = os.Remove(tempPath)
		}
	}
	return service.UploadInput{
		OriginalName: file.Filename,
		Size:         file.Size,
		TempPath:     tempPath,
	}, cleanup, nil
}
