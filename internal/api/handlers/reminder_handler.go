package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/internal/services"
	"github.com/Joni1544/my-saas-demo-sub001/internal/tracing"
)

// ReminderHandler exposes invoice reminder operations
type ReminderHandler struct {
	reminders *services.ReminderService
	tracer    tracing.Tracer
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(reminders *services.ReminderService, tracer tracing.Tracer) *ReminderHandler {
	return &ReminderHandler{
		reminders: reminders,
		tracer:    tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *ReminderHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/tenants/:id/invoices/overdue", h.HandleOverdueInvoices)
	api.GET("/tenants/:id/reminders/search", h.HandleSearchReminders)
	api.POST("/invoices/:id/reminders", h.HandleCreateReminder)
	api.POST("/invoices/:id/reminders/stop", h.HandleStopReminders)
	api.POST("/reminders/:id/sent", h.HandleMarkSent)
	api.POST("/reminders/:id/failed", h.HandleMarkFailed)
}

// HandleOverdueInvoices lists a tenant's overdue invoices
func (h *ReminderHandler) HandleOverdueInvoices(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	invoices, err := h.reminders.GetOverdueInvoices(c.Request.Context(), tenantID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list overdue invoices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list overdue invoices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

// HandleSearchReminders queries a tenant's dunning history in the search
// index. Returns 503 when no search backend is configured.
func (h *ReminderHandler) HandleSearchReminders(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	results, err := h.reminders.SearchReminders(c.Request.Context(), tenantID, c.Query("q"))
	if err != nil {
		if errors.Is(err, services.ErrSearchUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Reminder search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reminder search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// CreateReminderRequest issues a reminder at an explicit level
type CreateReminderRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	Level    int       `json:"level" binding:"required,min=1,max=3"`
	Method   string    `json:"method"`
	AIText   string    `json:"ai_text"`
}

// HandleCreateReminder persists a reminder for an invoice
func (h *ReminderHandler) HandleCreateReminder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-reminder")
	defer h.tracer.EndTransaction(txn)

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reminder, err := h.reminders.CreateReminder(c.Request.Context(), req.TenantID, invoiceID, req.Level, req.Method, req.AIText)
	if err != nil {
		if errors.Is(err, services.ErrInvoicePaid) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Failed to create reminder")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reminder"})
		return
	}

	c.JSON(http.StatusCreated, reminder)
}

// HandleStopReminders resets the invoice's reminder level, used when an
// invoice is paid
func (h *ReminderHandler) HandleStopReminders(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return
	}

	if err := h.reminders.StopReminders(c.Request.Context(), invoiceID); err != nil {
		log.Error().Err(err).Msg("Failed to stop reminders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stop reminders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleMarkSent marks a reminder as delivered
func (h *ReminderHandler) HandleMarkSent(c *gin.Context) {
	h.updateReminderStatus(c, h.reminders.MarkReminderSent)
}

// HandleMarkFailed marks a reminder delivery as failed
func (h *ReminderHandler) HandleMarkFailed(c *gin.Context) {
	h.updateReminderStatus(c, h.reminders.MarkReminderFailed)
}

func (h *ReminderHandler) updateReminderStatus(c *gin.Context, update func(ctx context.Context, id uuid.UUID) error) {
	reminderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder id"})
		return
	}

	if err := update(c.Request.Context(), reminderID); err != nil {
		log.Error().Err(err).Msg("Failed to update reminder status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update reminder status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
