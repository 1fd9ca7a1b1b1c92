// Package wire provides dependency injection for ecoprog.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"

	cliadapter "github.com/example/ecoprog/internal/adapters/cli"
	"github.com/example/ecoprog/internal/adapters/notify"
	redisadapter "github.com/example/ecoprog/internal/adapters/redis"
	"github.com/example/ecoprog/internal/adapters/sqlite"
	"github.com/example/ecoprog/internal/app"
	"github.com/example/ecoprog/internal/config"
	"github.com/example/ecoprog/internal/db"
	"github.com/example/ecoprog/internal/logging"
	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/ports/secondary"
	"github.com/example/ecoprog/internal/telemetry"
)

var (
	configPath string

	cfg             *config.Config
	logger          *zap.Logger
	database        *sql.DB
	metrics         *telemetry.Metrics
	tracingShutdown func(context.Context) error
	publisher       *redisadapter.SignalPublisher

	coordinator        *app.ProgressionCoordinator
	dispatcher         *app.SignalDispatcher
	schoolService      primary.SchoolService
	evidenceService    primary.EvidenceService
	overrideService    primary.OverrideService
	requirementService primary.RequirementService
	logService         primary.LogService

	once    sync.Once
	initErr error
)

// SetConfigPath selects an explicit config file. It must be called before
// the first service is requested.
func SetConfigPath(path string) {
	configPath = path
}

// Init builds every dependency once and reports the first failure.
func Init() error {
	once.Do(initServices)
	return initErr
}

func mustInit() {
	if err := Init(); err != nil {
		log.Fatalf("failed to initialize ecoprog: %v", err)
	}
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error

	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		initErr = err
		return
	}

	logger, err = logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		initErr = err
		return
	}

	tracingShutdown, err = telemetry.SetupTracing(context.Background(), telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		initErr = fmt.Errorf("failed to set up tracing: %w", err)
		return
	}

	path := cfg.Database.Path
	if path == "" {
		if path, err = db.DefaultPath(); err != nil {
			initErr = err
			return
		}
	}
	database, err = db.Open(path, cfg.Database.BusyTimeoutMS)
	if err != nil {
		initErr = err
		return
	}

	metrics = telemetry.NewMetrics()

	// Create repository adapters (secondary ports)
	tx := sqlite.NewTransactor(database)

	// Signal subscribers, in delivery order
	subscribers := []secondary.SignalSubscriber{notify.NewLogNotifier(logger)}
	if cfg.Redis.Enabled {
		publisher = redisadapter.NewSignalPublisher(redisadapter.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		}, logger)
		subscribers = append(subscribers, publisher)
	}

	executor := app.NewEffectExecutor(subscribers...)
	dispatcher = app.NewSignalDispatcher(sqlite.NewOutboxRepository(database), executor, app.DispatcherConfig{
		Consumer:     cfg.Outbox.Consumer,
		BatchSize:    cfg.Outbox.BatchSize,
		LeaseTTL:     cfg.Outbox.LeaseTTL,
		PollInterval: cfg.Outbox.PollInterval,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		RetryInitial: cfg.Outbox.RetryInitial,
		RetryMax:     cfg.Outbox.RetryMax,
	}, metrics, logger)

	// Create services (primary ports implementation)
	coordinator = app.NewProgressionCoordinator(tx, dispatcher, metrics, logger)
	schoolService = app.NewSchoolService(tx, coordinator)
	evidenceService = app.NewEvidenceService(tx, coordinator)
	overrideService = app.NewOverrideService(tx, coordinator)
	requirementService = app.NewRequirementService(tx, coordinator, logger)
	logService = app.NewLogService(sqlite.NewActivityLogRepository(database))
}

// Shutdown flushes spans and releases connections. Safe to call when
// nothing was initialized.
func Shutdown(ctx context.Context) {
	if tracingShutdown != nil {
		_ = tracingShutdown(ctx)
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if database != nil {
		_ = database.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	mustInit()
	return cfg
}

// Logger returns the engine logger.
func Logger() *zap.Logger {
	mustInit()
	return logger
}

// DB returns the database handle.
func DB() *sql.DB {
	mustInit()
	return database
}

// Metrics returns the engine collectors.
func Metrics() *telemetry.Metrics {
	mustInit()
	return metrics
}

// OutboxService returns the singleton signal dispatcher.
func OutboxService() primary.OutboxService {
	mustInit()
	return dispatcher
}

// ProgressionService returns the singleton progression coordinator.
func ProgressionService() primary.ProgressionService {
	mustInit()
	return coordinator
}

// SchoolAdapter returns a new SchoolAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func SchoolAdapter() *cliadapter.SchoolAdapter {
	return SchoolAdapterWithOutput(os.Stdout)
}

// SchoolAdapterWithOutput returns a new SchoolAdapter writing to out.
func SchoolAdapterWithOutput(out io.Writer) *cliadapter.SchoolAdapter {
	mustInit()
	return cliadapter.NewSchoolAdapter(schoolService, coordinator, out)
}

// ProgressAdapter returns a new ProgressAdapter writing to stdout.
func ProgressAdapter() *cliadapter.ProgressAdapter {
	mustInit()
	return cliadapter.NewProgressAdapter(coordinator, os.Stdout)
}

// EvidenceAdapter returns a new EvidenceAdapter writing to stdout.
func EvidenceAdapter() *cliadapter.EvidenceAdapter {
	mustInit()
	return cliadapter.NewEvidenceAdapter(evidenceService, os.Stdout)
}

// OverrideAdapter returns a new OverrideAdapter writing to stdout.
func OverrideAdapter() *cliadapter.OverrideAdapter {
	mustInit()
	return cliadapter.NewOverrideAdapter(overrideService, os.Stdout)
}

// RequirementAdapter returns a new RequirementAdapter writing to stdout.
func RequirementAdapter() *cliadapter.RequirementAdapter {
	mustInit()
	return cliadapter.NewRequirementAdapter(requirementService, os.Stdout)
}

// OutboxAdapter returns a new OutboxAdapter writing to stdout.
func OutboxAdapter() *cliadapter.OutboxAdapter {
	mustInit()
	return cliadapter.NewOutboxAdapter(dispatcher, os.Stdout)
}

// LogAdapter returns a new LogAdapter writing to stdout.
func LogAdapter() *cliadapter.LogAdapter {
	mustInit()
	return cliadapter.NewLogAdapter(logService, os.Stdout)
}
