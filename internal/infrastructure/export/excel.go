package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/ports"
)

const reportSheet = "Inventory"

var reportHeader = []any{
	"car_id", "model_name", "price", "kilometers", "registration_date",
	"power_kw", "power_ps", "range_km", "status",
	"first_seen_date", "last_seen_date",
	"value_efficiency_score", "age_usage_score", "performance_range_score",
	"equipment_score", "final_score", "link",
}

// ExcelExporter renders the current-state view, joined with the latest
// scores, into a dated xlsx workbook.
type ExcelExporter struct {
	outputDir string
}

var _ ports.ReportExporter = (*ExcelExporter)(nil)

// NewExcelExporter sets the directory reports are written to.
func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{outputDir: outputDir}
}

// ExportReport writes one workbook for the given day and returns its path.
func (e *ExcelExporter) ExportReport(_ context.Context, vehicles []domain.VehicleVersion, scores []domain.ScoreVersion, day time.Time) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	scoresByID := make(map[int64]domain.ScoreSet, len(scores))
	for _, row := range scores {
		if row.IsLatest {
			scoresByID[row.VehicleID] = row.ScoreSet
		}
	}

	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName(book.GetSheetName(0), reportSheet); err != nil {
		return "", fmt.Errorf("name report sheet: %w", err)
	}
	if err := book.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return "", fmt.Errorf("write report header: %w", err)
	}

	for i, vehicle := range vehicles {
		set := scoresByID[vehicle.ID]
		row := []any{
			vehicle.ID,
			vehicle.ModelName,
			cellNumeric(vehicle.Price),
			cellNumeric(vehicle.Kilometers),
			vehicle.RegistrationDate,
			cellNumeric(vehicle.PowerKW),
			cellNumeric(vehicle.PowerPS),
			cellNumeric(vehicle.RangeKM),
			string(vehicle.Status),
			vehicle.FirstSeen.Format("2006-01-02"),
			vehicle.LastSeen.Format("2006-01-02"),
			cellNumeric(set.ValueEfficiency),
			cellNumeric(set.AgeUsage),
			cellNumeric(set.PerformanceRange),
			cellNumeric(set.Equipment),
			cellNumeric(set.Final),
			vehicle.Link,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", fmt.Errorf("report row %d: %w", i+2, err)
		}
		if err := book.SetSheetRow(reportSheet, cell, &row); err != nil {
			return "", fmt.Errorf("write report row %d: %w", i+2, err)
		}
	}

	path := filepath.Join(e.outputDir, fmt.Sprintf("inventory_%s.xlsx", day.Format("2006-01-02")))
	if err := book.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	return path, nil
}

func cellNumeric(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
