package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/ports"
	"InventoryTracker/internal/reconcile"
	"InventoryTracker/internal/scoring"
)

// ErrRunInProgress is returned when a reconciliation run is triggered
// while the previous one has not finished.
var ErrRunInProgress = fmt.Errorf("reconciliation run already in progress")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source          ports.InventorySource
	Store           ports.HistoryStore
	Reporter        ports.ReportExporter
	EquipmentList   ports.EquipmentListExporter
	Database        ports.DatabaseSink
	Notifier        ports.Notifier
	PreferencesFile string
	Logger          *slog.Logger
}

// Pipeline implements the snapshot-reconciliation workflow: fetch the
// current inventory, compute scores, fold the snapshot into the three
// history streams, persist, and publish derived outputs.
type Pipeline struct {
	source          ports.InventorySource
	store           ports.HistoryStore
	reporter        ports.ReportExporter
	equipmentList   ports.EquipmentListExporter
	database        ports.DatabaseSink
	notifier        ports.Notifier
	preferencesFile string
	logger          *slog.Logger
	running         atomic.Bool
}

// RunStats summarizes one finished reconciliation run.
type RunStats struct {
	Scraped     int
	Active      int
	Retired     int
	TotalUnique int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:          deps.Source,
		store:           deps.Store,
		reporter:        deps.Reporter,
		equipmentList:   deps.EquipmentList,
		database:        deps.Database,
		notifier:        deps.Notifier,
		preferencesFile: deps.PreferencesFile,
		logger:          logger,
	}
}

// ProcessDay runs one full reconciliation for the given trigger time.
// Overlapping invocations are rejected with ErrRunInProgress. Any error
// before persistence aborts the run and leaves the stored history
// untouched; failures in the derived outputs (report, catalog, database
// mirror, notification) are logged and do not fail the run.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) error {
	if p.source == nil || p.store == nil {
		return fmt.Errorf("pipeline misconfigured: source and store are required")
	}

	if !p.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer p.running.Store(false)

	p.logger.Info("run started", "day", day.Format("2006-01-02"))

	snapshot, err := p.source.FetchInventory(ctx)
	if err != nil {
		return fmt.Errorf("fetch inventory: %w", err)
	}
	if len(snapshot) == 0 {
		p.logger.Warn("empty snapshot, skipping reconciliation")
		return nil
	}

	prior, err := p.loadHistories(ctx)
	if err != nil {
		return err
	}

	prefs := scoring.LoadPreferences(p.preferencesFile, p.logger)
	scores := scoring.Calculate(snapshot, prefs, day)

	result, err := reconcile.Run(snapshot, scores, prior, day)
	if err != nil {
		return fmt.Errorf("reconcile snapshot: %w", err)
	}
	if err := reconcile.Validate(result); err != nil {
		return fmt.Errorf("validate reconciliation: %w", err)
	}

	if err := p.store.Save(ctx, result); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}

	stats := collectStats(snapshot, result)
	p.logger.Info("run reconciled",
		"scraped", stats.Scraped,
		"active", stats.Active,
		"retired", stats.Retired,
		"total_unique", stats.TotalUnique)

	p.publishOutputs(ctx, result, day)
	p.notify(ctx, stats, day)

	return nil
}

func (p *Pipeline) loadHistories(ctx context.Context) (reconcile.Histories, error) {
	vehicles, err := p.store.LoadVehicles(ctx)
	if err != nil {
		return reconcile.Histories{}, fmt.Errorf("load vehicle history: %w", err)
	}
	equipment, err := p.store.LoadEquipment(ctx)
	if err != nil {
		return reconcile.Histories{}, fmt.Errorf("load equipment history: %w", err)
	}
	scores, err := p.store.LoadScores(ctx)
	if err != nil {
		return reconcile.Histories{}, fmt.Errorf("load scores history: %w", err)
	}
	return reconcile.Histories{Vehicles: vehicles, Equipment: equipment, Scores: scores}, nil
}

func (p *Pipeline) publishOutputs(ctx context.Context, result domain.ReconciliationResult, day time.Time) {
	latest := reconcile.LatestVehicles(result.Vehicles)

	if p.reporter != nil {
		path, err := p.reporter.ExportReport(ctx, latest, result.Scores, day)
		if err != nil {
			p.logger.Error("report export failed", "error", err)
		} else {
			p.logger.Info("report written", "path", path)
		}
	}

	if p.equipmentList != nil {
		path, err := p.equipmentList.ExportEquipmentList(ctx, latest, day)
		if err != nil {
			p.logger.Error("equipment catalog export failed", "error", err)
		} else {
			p.logger.Info("equipment catalog written", "path", path)
		}
	}

	if p.database != nil {
		if err := p.database.SyncAll(ctx, result); err != nil {
			p.logger.Error("database sync failed", "error", err)
		} else {
			p.logger.Info("database synced")
		}
	}
}

func (p *Pipeline) notify(ctx context.Context, stats RunStats, day time.Time) {
	if p.notifier == nil {
		return
	}

	title := fmt.Sprintf("Inventory run %s", day.Format("2006-01-02"))
	message := fmt.Sprintf("Scraped %d vehicles: %d active, %d retired, %d tracked in total.",
		stats.Scraped, stats.Active, stats.Retired, stats.TotalUnique)
	if err := p.notifier.Publish(ctx, title, message); err != nil {
		p.logger.Error("notification failed", "error", err)
	}
}

// collectStats derives the run summary from the merged vehicle table.
// A key with an open version is active; a key whose versions are all
// closed has left the inventory.
func collectStats(snapshot []domain.Vehicle, result domain.ReconciliationResult) RunStats {
	stats := RunStats{Scraped: len(snapshot)}
	unique := make(map[int64]struct{})
	open := make(map[int64]struct{})
	for _, row := range result.Vehicles {
		unique[row.ID] = struct{}{}
		if row.IsLatest {
			open[row.ID] = struct{}{}
		}
	}
	stats.Active = len(open)
	stats.TotalUnique = len(unique)
	stats.Retired = stats.TotalUnique - stats.Active
	return stats
}
