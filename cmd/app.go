package cmd

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Joni1544/my-saas-demo-sub001/config"
	"github.com/Joni1544/my-saas-demo-sub001/internal/cache"
	"github.com/Joni1544/my-saas-demo-sub001/internal/eventbus"
	"github.com/Joni1544/my-saas-demo-sub001/internal/metrics"
	"github.com/Joni1544/my-saas-demo-sub001/internal/models"
	"github.com/Joni1544/my-saas-demo-sub001/internal/notification"
	"github.com/Joni1544/my-saas-demo-sub001/internal/repositories"
	"github.com/Joni1544/my-saas-demo-sub001/internal/search"
	"github.com/Joni1544/my-saas-demo-sub001/internal/services"
	"github.com/Joni1544/my-saas-demo-sub001/internal/tracing"
)

// app bundles everything both commands need
type app struct {
	cfg          config.Config
	bus          *eventbus.Bus
	availability *services.AvailabilityService
	reminders    *services.ReminderService
	autopilot    *services.AutopilotService
	metrics      *metrics.Metrics
	tracer       tracing.Tracer
}

// buildApp wires the full service graph from configuration. Optional
// collaborators (cache, search, service bus) degrade to disabled
// implementations when their backends are unavailable.
func buildApp(cfg config.Config) (*app, error) {
	metricsCollector := metrics.NewMetrics()

	db, readOnlyDB, err := initDatabases(cfg)
	if err != nil {
		return nil, err
	}
	metricsCollector.SetHealthCheck("database", true)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}
	metricsCollector.SetHealthCheck("redis", redisCache != nil)

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search")
		elasticClient = nil
	}
	metricsCollector.SetHealthCheck("elasticsearch", elasticClient != nil)

	var notifier notification.Notifier
	if cfg.ServiceBus.ConnectionString != "" {
		sbNotifier, err := notification.NewServiceBusNotifier(cfg.ServiceBus)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Service Bus notifier, falling back to log notifier")
			notifier = notification.NewLogNotifier()
		} else {
			notifier = sbNotifier
		}
	} else {
		notifier = notification.NewLogNotifier()
	}

	clock := clockwork.NewRealClock()

	bus := eventbus.New(eventbus.Config{
		DrainInterval: cfg.EventBus.DrainInterval,
		MaxRetries:    cfg.EventBus.MaxRetries,
		Clock:         clock,
		DeadLetters:   repositories.NewDeadLetterRepository(db),
		Metrics:       metricsCollector,
	})

	employeeRepo := repositories.NewEmployeeRepository(db, readOnlyDB)
	vacationRepo := repositories.NewVacationRequestRepository(db, readOnlyDB)
	appointmentRepo := repositories.NewAppointmentRepository(db, readOnlyDB)
	tenantRepo := repositories.NewTenantRepository(db, readOnlyDB)
	invoiceRepo := repositories.NewInvoiceRepository(db, readOnlyDB)
	reminderRepo := repositories.NewInvoiceReminderRepository(db, readOnlyDB)
	taskRepo := repositories.NewTaskRepository(db, readOnlyDB)
	inventoryRepo := repositories.NewInventoryRepository(db, readOnlyDB)

	availability := services.NewAvailabilityService(employeeRepo, vacationRepo, redisCache)

	var indexer services.ReminderIndexer
	if elasticClient != nil {
		indexer = elasticClient
	}
	reminders := services.NewReminderService(invoiceRepo, reminderRepo, bus, indexer, clock, cfg.Reminders)

	autopilot := services.NewAutopilotService(
		bus,
		taskRepo,
		tenantRepo,
		inventoryRepo,
		appointmentRepo,
		employeeRepo,
		reminders,
		availability,
		notifier,
		clock,
		metricsCollector,
		cfg.Autopilot.Enabled,
	)

	return &app{
		cfg:          cfg,
		bus:          bus,
		availability: availability,
		reminders:    reminders,
		autopilot:    autopilot,
		metrics:      metricsCollector,
		tracer:       tracer,
	}, nil
}

func initDatabases(cfg config.Config) (*gorm.DB, *gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	readOnlyDB, err := gorm.Open(postgres.Open(cfg.DB.ReadOnlyDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	if err := configurePool(db, cfg.DB.MaxIdleConns, cfg.DB.MaxOpenConns, cfg.DB.ConnMaxLifetime); err != nil {
		return nil, nil, err
	}
	// The read side gets a larger pool, availability checks are read heavy
	if err := configurePool(readOnlyDB, cfg.DB.MaxIdleConns*2, cfg.DB.MaxOpenConns*2, cfg.DB.ConnMaxLifetime); err != nil {
		return nil, nil, err
	}

	return db, readOnlyDB, nil
}

func configurePool(db *gorm.DB, maxIdle, maxOpen int, lifetime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}
