package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/metrics"
)

// MetricsHandler exposes metrics and health over HTTP
type MetricsHandler struct {
	metrics *metrics.Metrics
	bus     *eventbus.Bus
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics, bus *eventbus.Bus) *MetricsHandler {
	return &MetricsHandler{
		metrics: m,
		bus:     bus,
	}
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealthCheck)
}

// HandleGetMetrics returns all metrics
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))
	if h.bus != nil {
		length, _ := h.bus.QueueStatus()
		h.metrics.SetGauge("eventbus.queue_length", int64(length))
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}

// HandleGetHealthCheck returns overall health plus the bus queue status
func (h *MetricsHandler) HandleGetHealthCheck(c *gin.Context) {
	healthChecks := h.metrics.GetHealthChecks()

	healthy := true
	for _, status := range healthChecks {
		if !status {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	body := gin.H{
		"status":  healthy,
		"details": healthChecks,
	}
	if h.bus != nil {
		length, processing := h.bus.QueueStatus()
		body["event_queue"] = gin.H{"length": length, "processing": processing}
	}

	c.JSON(status, body)
}
