package ports

import (
	"context"
	"time"

	"InventoryTracker/internal/domain"
)

// InventorySource pulls one full snapshot of the tracked inventory.
type InventorySource interface {
	FetchInventory(ctx context.Context) ([]domain.Vehicle, error)
}

// HistoryStore loads and persists the three history tables. Loading a
// stream that does not exist yet yields an empty history, not an error.
type HistoryStore interface {
	LoadVehicles(ctx context.Context) ([]domain.VehicleVersion, error)
	LoadEquipment(ctx context.Context) ([]domain.EquipmentVersion, error)
	LoadScores(ctx context.Context) ([]domain.ScoreVersion, error)
	Save(ctx context.Context, result domain.ReconciliationResult) error
}

// ReportExporter renders the current-state view for human consumption.
type ReportExporter interface {
	ExportReport(ctx context.Context, vehicles []domain.VehicleVersion, scores []domain.ScoreVersion, day time.Time) (string, error)
}

// EquipmentListExporter publishes the catalog of every equipment item
// present on the current fleet, grouped by category.
type EquipmentListExporter interface {
	ExportEquipmentList(ctx context.Context, vehicles []domain.VehicleVersion, day time.Time) (string, error)
}

// DatabaseSink mirrors a finished reconciliation into a remote database.
type DatabaseSink interface {
	SyncAll(ctx context.Context, result domain.ReconciliationResult) error
}

// Notifier delivers run summaries to an out-of-band channel.
type Notifier interface {
	Publish(ctx context.Context, title, message string) error
}

// Scheduler controls when reconciliation runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
