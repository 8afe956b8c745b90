package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/internal/services"
	"github.com/Joni1544/my-saas-demo-sub001/internal/tracing"
)

// AvailabilityHandler exposes the availability checker over HTTP
type AvailabilityHandler struct {
	availability *services.AvailabilityService
	tracer       tracing.Tracer
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availability *services.AvailabilityService, tracer tracing.Tracer) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		tracer:       tracer,
	}
}

// RegisterRoutes registers the handler's routes
func (h *AvailabilityHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/employees/:id/availability", h.HandleCheckAvailability)
	api.GET("/tenants/:id/employees/eligible", h.HandleEligibleEmployees)
}

// HandleCheckAvailability answers whether an employee can take a slot.
// Negative results are 200 responses carrying the reason; only malformed
// input is a client error.
func (h *AvailabilityHandler) HandleCheckAvailability(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-check-availability")
	defer h.tracer.EndTransaction(txn)

	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
		return
	}
	start, end, err := parseInterval(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "employee_id", employeeID.String())

	span := h.tracer.StartSpan("availability-check", txn)
	result, err := h.availability.CheckAvailability(c.Request.Context(), employeeID, start, end)
	span.End()
	if err != nil {
		if errors.Is(err, services.ErrInvalidInterval) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Availability check failed")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "availability check failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleEligibleEmployees lists a tenant's employees who can take a slot
func (h *AvailabilityHandler) HandleEligibleEmployees(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-eligible-employees")
	defer h.tracer.EndTransaction(txn)

	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}
	start, end, err := parseInterval(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	employees, err := h.availability.EligibleEmployees(c.Request.Context(), tenantID, start, end)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInterval) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Eligible employee lookup failed")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "eligible employee lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"employees": employees, "count": len(employees)})
}

func parseInterval(c *gin.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be an RFC3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be an RFC3339 timestamp")
	}
	return start, end, nil
}
