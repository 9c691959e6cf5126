package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"InventoryTracker/internal/config"
	"InventoryTracker/internal/infrastructure/export"
	"InventoryTracker/internal/infrastructure/notify"
	"InventoryTracker/internal/infrastructure/parser"
	"InventoryTracker/internal/infrastructure/scheduler"
	"InventoryTracker/internal/infrastructure/storage"
	"InventoryTracker/internal/logging"
	"InventoryTracker/internal/ports"
	"InventoryTracker/internal/scanner"
	"InventoryTracker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	db       *sql.DB
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewStockLocatorScanner(nil, baseLogger.With("component", "scanner.stocklocator")))

	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	store := storage.NewCSVStore(
		cfg.Paths.VehicleHistoryFile(),
		cfg.Paths.EquipmentHistoryFile(),
		cfg.Paths.ScoresHistoryFile(),
		baseLogger.With("component", "store"),
	)

	var db *sql.DB
	var sink ports.DatabaseSink
	if cfg.Database.Sync && cfg.Database.DSN != "" {
		conn, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = conn
		sink = storage.NewPostgresRepository(conn, baseLogger.With("component", "database"))
	}

	var notifier ports.Notifier
	if cfg.Notifications.Pushover.APIToken != "" && cfg.Notifications.Pushover.UserKey != "" {
		notifier = notify.NewNotifier(cfg.Notifications.Pushover.APIToken, cfg.Notifications.Pushover.UserKey)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:          source,
		Store:           store,
		Reporter:        export.NewExcelExporter(cfg.Paths.OutputDir),
		EquipmentList:   export.NewEquipmentListExporter(cfg.Paths.OutputDir),
		Database:        sink,
		Notifier:        notifier,
		PreferencesFile: cfg.Paths.PreferencesFile,
		Logger:          baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, db: db}, nil
}

// Run executes the pipeline once, or on a recurring interval when the
// scheduler is configured. Recurring mode blocks until the context is
// cancelled or an interrupt arrives.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	interval := a.cfg.Scheduler.RunInterval()
	if interval <= 0 {
		now := time.Now().In(a.cfg.Scheduler.Location())
		return a.pipeline.ProcessDay(ctx, now)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	driver := scheduler.NewIntervalScheduler(interval)
	runner := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.logger.Info("scheduler running", "interval", interval.String())
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	return runner.Stop(stopCtx)
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing database", "error", err)
		}
	}
}
