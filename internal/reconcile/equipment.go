package reconcile

import (
	"sort"
	"time"

	"InventoryTracker/internal/domain"
)

type equipmentKey struct {
	vehicleID int64
	category  string
	name      string
}

// MergeEquipment re-populates the equipment history for every currently
// open vehicle version. The stream carries no change detection of its
// own: the equipment fingerprint is a tracked vehicle field, so any
// equipment change already opened a new vehicle version upstream, and
// each row here simply inherits that version's validity window.
//
// A previously-open equipment row is superseded by the fresh batch only
// when it belongs to the vehicle's still-open version (same ValidFrom);
// rows from an earlier version are closed at that version's end and
// carried, and rows whose vehicle left the latest partition are closed
// at asOf. That keeps (vehicle, category, name) unique within the
// latest partition without ever deleting a history window.
func MergeEquipment(latestVehicles []domain.VehicleVersion, history []domain.EquipmentVersion, asOf time.Time) []domain.EquipmentVersion {
	openSince := make(map[int64]time.Time, len(latestVehicles))
	for _, vehicle := range latestVehicles {
		if vehicle.IsLatest {
			openSince[vehicle.ID] = vehicle.ValidFrom
		}
	}

	merged := make([]domain.EquipmentVersion, 0, len(history))
	for _, row := range history {
		if !row.IsLatest {
			merged = append(merged, row)
			continue
		}

		from, open := openSince[row.VehicleID]
		switch {
		case open && row.ValidFrom.Equal(from):
			// Same still-open vehicle version: replaced by this
			// run's batch below.
			continue
		case open:
			// The vehicle was re-versioned; the old window ended
			// when the new version began.
			closedAt := from
			row.ValidTo = &closedAt
		default:
			closedAt := asOf
			row.ValidTo = &closedAt
		}
		row.IsLatest = false
		merged = append(merged, row)
	}

	var batch []domain.EquipmentVersion
	// Later rows overwrite earlier ones at their original position, an
	// explicit ordered keep-last fold over (vehicle, category, name).
	position := make(map[equipmentKey]int)

	for _, vehicle := range latestVehicles {
		if !vehicle.IsLatest {
			continue
		}

		for _, row := range flattenEquipment(vehicle) {
			key := equipmentKey{row.VehicleID, row.Category, row.Name}
			if at, ok := position[key]; ok {
				batch[at] = row
				continue
			}
			position[key] = len(batch)
			batch = append(batch, row)
		}
	}

	return append(merged, batch...)
}

// flattenEquipment turns a vehicle's nested equipment collection into
// stamped rows, collapsing duplicate (category, name) pairs and walking
// categories in sorted order so the output is deterministic.
func flattenEquipment(vehicle domain.VehicleVersion) []domain.EquipmentVersion {
	if len(vehicle.Equipment) == 0 {
		return nil
	}

	categories := make([]string, 0, len(vehicle.Equipment))
	for category := range vehicle.Equipment {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	seen := map[equipmentKey]struct{}{}
	var rows []domain.EquipmentVersion
	for _, category := range categories {
		for _, name := range vehicle.Equipment[category] {
			if name == "" {
				continue
			}
			key := equipmentKey{vehicle.ID, category, name}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			rows = append(rows, domain.EquipmentVersion{
				VehicleID: vehicle.ID,
				Category:  category,
				Name:      name,
				ValidFrom: vehicle.ValidFrom,
				ValidTo:   vehicle.ValidTo,
				IsLatest:  vehicle.IsLatest,
				ScrapedAt: vehicle.ScrapedAt,
			})
		}
	}

	return rows
}
