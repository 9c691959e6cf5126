package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/ports"
)

type equipmentCatalog struct {
	GeneratedAt  string              `json:"generated_at"`
	VehicleCount int                 `json:"vehicle_count"`
	ItemCount    int                 `json:"item_count"`
	Categories   map[string][]string `json:"categories"`
}

// EquipmentListExporter writes the union of equipment items observed
// across the current fleet, grouped by category. The file is used to
// maintain the desired-equipment preferences by hand.
type EquipmentListExporter struct {
	outputDir string
}

var _ ports.EquipmentListExporter = (*EquipmentListExporter)(nil)

func NewEquipmentListExporter(outputDir string) *EquipmentListExporter {
	return &EquipmentListExporter{outputDir: outputDir}
}

// ExportEquipmentList writes the catalog and returns its path.
func (e *EquipmentListExporter) ExportEquipmentList(_ context.Context, vehicles []domain.VehicleVersion, day time.Time) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	seen := make(map[string]map[string]struct{})
	for _, vehicle := range vehicles {
		for category, items := range vehicle.Equipment {
			bucket, ok := seen[category]
			if !ok {
				bucket = make(map[string]struct{})
				seen[category] = bucket
			}
			for _, item := range items {
				bucket[item] = struct{}{}
			}
		}
	}

	catalog := equipmentCatalog{
		GeneratedAt:  day.Format(time.RFC3339),
		VehicleCount: len(vehicles),
		Categories:   make(map[string][]string, len(seen)),
	}
	for category, bucket := range seen {
		items := make([]string, 0, len(bucket))
		for item := range bucket {
			items = append(items, item)
		}
		sort.Strings(items)
		catalog.Categories[category] = items
		catalog.ItemCount += len(items)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode equipment catalog: %w", err)
	}

	path := filepath.Join(e.outputDir, "equipment_list.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write equipment catalog: %w", err)
	}

	return path, nil
}
