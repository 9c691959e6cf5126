// Package reconcile merges point-in-time inventory snapshots into
// append-only SCD Type 2 history tables. One run is a pure function of
// the snapshot, the prior histories, and a single logical timestamp;
// nothing here touches storage.
package reconcile

import (
	"fmt"
	"time"

	"InventoryTracker/internal/domain"
)

// Histories bundles the three prior history tables fed into one run.
type Histories struct {
	Vehicles  []domain.VehicleVersion
	Equipment []domain.EquipmentVersion
	Scores    []domain.ScoreVersion
}

// Run executes the three merge passes over one shared validity window:
// vehicles first, then equipment and scores keyed off the vehicle
// stream's fresh latest partition. The input tables are not modified;
// on error nothing partial is returned.
func Run(snapshot []domain.Vehicle, scores map[int64]domain.ScoreSet, prior Histories, asOf time.Time) (domain.ReconciliationResult, error) {
	vehicles, err := MergeVehicles(snapshot, prior.Vehicles, asOf)
	if err != nil {
		return domain.ReconciliationResult{}, err
	}

	latest := LatestVehicles(vehicles)

	return domain.ReconciliationResult{
		Vehicles:  vehicles,
		Equipment: MergeEquipment(latest, prior.Equipment, asOf),
		Scores:    MergeScores(latest, scores, prior.Scores, asOf),
	}, nil
}

// Validate checks the structural invariants of a merged result: at most
// one open row per key in each stream, closed rows carry a window end
// no earlier than their start, open equipment and score rows always
// have an open vehicle version behind them, and the open equipment
// partition is free of duplicate (vehicle, category, name) tuples.
func Validate(result domain.ReconciliationResult) error {
	openVehicles := make(map[int64]struct{})
	for _, version := range result.Vehicles {
		if version.IsLatest {
			if _, ok := openVehicles[version.ID]; ok {
				return fmt.Errorf("vehicle %d has more than one open version", version.ID)
			}
			openVehicles[version.ID] = struct{}{}
			if version.ValidTo != nil {
				return fmt.Errorf("vehicle %d: open version carries valid_to", version.ID)
			}
			continue
		}
		if err := checkClosedWindow(version.ValidFrom, version.ValidTo); err != nil {
			return fmt.Errorf("vehicle %d: %w", version.ID, err)
		}
	}

	openEquipment := make(map[equipmentKey]struct{})
	for _, row := range result.Equipment {
		if !row.IsLatest {
			if err := checkClosedWindow(row.ValidFrom, row.ValidTo); err != nil {
				return fmt.Errorf("equipment for vehicle %d: %w", row.VehicleID, err)
			}
			continue
		}
		if _, ok := openVehicles[row.VehicleID]; !ok {
			return fmt.Errorf("equipment %q/%q: open row for vehicle %d without open vehicle version", row.Category, row.Name, row.VehicleID)
		}
		key := equipmentKey{row.VehicleID, row.Category, row.Name}
		if _, ok := openEquipment[key]; ok {
			return fmt.Errorf("equipment %q/%q duplicated for vehicle %d", row.Category, row.Name, row.VehicleID)
		}
		openEquipment[key] = struct{}{}
	}

	openScores := make(map[int64]struct{})
	for _, row := range result.Scores {
		if !row.IsLatest {
			if err := checkClosedWindow(row.ValidFrom, row.ValidTo); err != nil {
				return fmt.Errorf("scores for vehicle %d: %w", row.VehicleID, err)
			}
			continue
		}
		if _, ok := openVehicles[row.VehicleID]; !ok {
			return fmt.Errorf("scores: open row for vehicle %d without open vehicle version", row.VehicleID)
		}
		if _, ok := openScores[row.VehicleID]; ok {
			return fmt.Errorf("scores: vehicle %d has more than one open row", row.VehicleID)
		}
		openScores[row.VehicleID] = struct{}{}
	}

	return nil
}

func checkClosedWindow(from time.Time, to *time.Time) error {
	if to == nil {
		return fmt.Errorf("closed row is missing valid_to")
	}
	if to.Before(from) {
		return fmt.Errorf("valid_to %s precedes valid_from %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return nil
}
