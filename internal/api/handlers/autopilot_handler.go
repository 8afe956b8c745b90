package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/internal/services"
	"github.com/Joni1544/my-saas-demo-sub001/internal/tracing"
)

// AutopilotHandler exposes the autopilot's admin operations
type AutopilotHandler struct {
	autopilot *services.AutopilotService
	tracer    tracing.Tracer
}

// NewAutopilotHandler creates a new autopilot handler
func NewAutopilotHandler(autopilot *services.AutopilotService, tracer tracing.Tracer) *AutopilotHandler {
	return &AutopilotHandler{
		autopilot: autopilot,
		tracer:    tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *AutopilotHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/autopilot/status", h.HandleStatus)
	api.POST("/autopilot/enabled", h.HandleSetEnabled)
	api.POST("/appointments/reassign", h.HandleReassign)
	api.POST("/employees/:id/sick", h.HandleMarkSick)
	api.POST("/tasks/:id/assign", h.HandleAssignTask)
}

// HandleStatus reports the autopilot toggle and timer state
func (h *AutopilotHandler) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled": h.autopilot.Enabled(),
		"running": h.autopilot.Running(),
	})
}

// SetEnabledRequest toggles autopilot actions
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// HandleSetEnabled suppresses or resumes autopilot actions
func (h *AutopilotHandler) HandleSetEnabled(c *gin.Context) {
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.autopilot.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

// ReassignRequest moves one employee's pending appointments to another
type ReassignRequest struct {
	OldEmployeeID uuid.UUID `json:"old_employee_id" binding:"required"`
	NewEmployeeID uuid.UUID `json:"new_employee_id" binding:"required"`
}

// HandleReassign bulk-reassigns appointments waiting for a replacement
func (h *AutopilotHandler) HandleReassign(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reassign-appointments")
	defer h.tracer.EndTransaction(txn)

	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span := h.tracer.StartSpan("reschedule-appointments", txn)
	moved, skipped, err := h.autopilot.RescheduleAppointments(c.Request.Context(), req.OldEmployeeID, req.NewEmployeeID)
	span.End()
	if err != nil {
		log.Error().Err(err).Msg("Reassignment failed")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reassignment failed", "moved": moved, "skipped": skipped})
		return
	}

	c.JSON(http.StatusOK, gin.H{"moved": moved, "skipped": skipped})
}

// HandleMarkSick reports an employee sick and flags their future
// appointments for reassignment
func (h *AutopilotHandler) HandleMarkSick(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-mark-employee-sick")
	defer h.tracer.EndTransaction(txn)

	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}

	if err := h.autopilot.MarkEmployeeSick(c.Request.Context(), employeeID); err != nil {
		log.Error().Err(err).Msg("Failed to mark employee sick")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark employee sick"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AssignTaskRequest assigns a task to a user
type AssignTaskRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	UserID   uuid.UUID `json:"user_id" binding:"required"`
}

// HandleAssignTask sets the assignee of a task
func (h *AutopilotHandler) HandleAssignTask(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.autopilot.AssignTask(c.Request.Context(), req.TenantID, taskID, req.UserID); err != nil {
		log.Error().Err(err).Msg("Failed to assign task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
