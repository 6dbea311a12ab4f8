package handler

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-workflow-api/internal/service"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
	"github.com/noah-isme/report-workflow-api/pkg/response"
)

// FileHandler wires HTTP endpoints to the report file manager.
type FileHandler struct {
	service *service.FileService
}

// NewFileHandler creates a new handler.
func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{service: svc}
}

type updateContentRequest struct {
	Content string `json:"content"`
}

// Info godoc
// @Summary Report file info
// @Description Return metadata for a report's stored file
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [get]
func (h *FileHandler) Info(c *gin.Context) {
	detail, err := h.service.Info(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Download godoc
// @Summary Download report file
// @Description Stream the report's stored file as an attachment
// @Tags Files
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	file, detail, err := h.service.Download(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.DataFromReader(http.StatusOK, detail.Size, contentTypeFor(detail.Extension), file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", detail.FileName),
	})
}

// Preview godoc
// @Summary Preview report file
// @Description Return the file inline for previewable extensions
// @Tags Files
// @Produce application/octet-stream
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/preview [get]
func (h *FileHandler) Preview(c *gin.Context) {
	content, detail, err := h.service.Preview(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", detail.FileName))
	c.Data(http.StatusOK, contentTypeFor(detail.Extension), content)
}

// Content godoc
// @Summary Read editable file content
// @Description Return editable file content as text for the edit form
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/content [get]
func (h *FileHandler) Content(c *gin.Context) {
	content, detail, err := h.service.Content(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"file": detail, "content": content}, nil)
}

// UpdateContent godoc
// @Summary Update editable file content
// @Description Replace editable file content in place; a timestamped backup is taken before the write
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body updateContentRequest true "Content payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/content [put]
func (h *FileHandler) UpdateContent(c *gin.Context) {
	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid content payload"))
		return
	}

	detail, err := h.service.UpdateContent(c.Request.Context(), c.Param("id"), claimsFromContext(c), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

func contentTypeFor(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
