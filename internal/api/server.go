package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Joni1544/my-saas-demo-sub001/config"
	"github.com/Joni1544/my-saas-demo-sub001/internal/api/handlers"
	"github.com/Joni1544/my-saas-demo-sub001/internal/api/middleware"
	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/metrics"
	"github.com/Joni1544/my-saas-demo-sub001/internal/services"
	"github.com/Joni1544/my-saas-demo-sub001/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new HTTP server wiring all handlers
func NewServer(
	cfg config.Config,
	availability *services.AvailabilityService,
	autopilot *services.AutopilotService,
	reminders *services.ReminderService,
	bus *eventbus.Bus,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if app := tracer.Application(); app != nil {
		router.Use(nrgin.Middleware(app))
	}

	metricsHandler := handlers.NewMetricsHandler(m, bus)
	metricsHandler.RegisterRoutes(router)

	apiGroup := router.Group("/api/v1")
	handlers.NewAvailabilityHandler(availability, tracer).RegisterRoutes(apiGroup)
	handlers.NewAutopilotHandler(autopilot, tracer).RegisterRoutes(apiGroup)
	handlers.NewReminderHandler(reminders, tracer).RegisterRoutes(apiGroup)

	return &Server{
		config: cfg,
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress,
			Handler:      router,
			ReadTimeout:  cfg.ServerTimeout,
			WriteTimeout: cfg.ServerTimeout,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}
	return nil
}
