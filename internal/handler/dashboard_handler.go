package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-workflow-api/internal/service"
	appErrors "github.com/noah-isme/report-workflow-api/pkg/errors"
	"github.com/noah-isme/report-workflow-api/pkg/response"
)

// DashboardHandler wires HTTP endpoints to the role dashboards.
type DashboardHandler struct {
	stats    *service.StatsService
	activity *service.ActivityService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(stats *service.StatsService, activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{stats: stats, activity: activity}
}

// Admin godoc
// @Summary Admin dashboard
// @Description System-wide counts, growth charts and recent activity
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	overview, err := h.stats.AdminOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, overview, nil)
}

// Supervisor godoc
// @Summary Supervisor dashboard
// @Description Review workload counts for the authenticated supervisor
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/supervisor [get]
func (h *DashboardHandler) Supervisor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	overview, err := h.stats.SupervisorOverview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, overview, nil)
}

// Coordinator godoc
// @Summary Coordinator dashboard
// @Description Assignment counts, supervisor loads and history for the caller's level
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/coordinator [get]
func (h *DashboardHandler) Coordinator(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	overview, err := h.stats.CoordinatorOverview(c.Request.Context(), claims.Level)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, overview, nil)
}

// HOD godoc
// @Summary HOD dashboard
// @Description Department-wide report and staffing numbers
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard/hod [get]
func (h *DashboardHandler) HOD(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	overview, err := h.stats.HODOverview(c.Request.Context(), claims.Department)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, overview, nil)
}

// AvailableSupervisors godoc
// @Summary Available supervisors
// @Description List supervisors that still have open assignment slots
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /supervisors/available [get]
func (h *DashboardHandler) AvailableSupervisors(c *gin.Context) {
	loads, err := h.stats.AvailableSupervisors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, loads, nil)
}

// Activity godoc
// @Summary Recent activity
// @Description List recent activity rows (admin only)
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *DashboardHandler) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "15"))
	logs, err := h.activity.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, nil)
}

// UserActivity godoc
// @Summary User activity
// @Description List one user's activity rows (admin or self)
// @Tags Dashboards
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /activity/{id} [get]
func (h *DashboardHandler) UserActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.activity.ForUser(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, logs, nil)
}
