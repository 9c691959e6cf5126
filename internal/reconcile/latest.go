package reconcile

import "InventoryTracker/internal/domain"

// LatestVehicles returns the current-state partition of a vehicle
// history: the rows whose validity window is still open.
func LatestVehicles(history []domain.VehicleVersion) []domain.VehicleVersion {
	var latest []domain.VehicleVersion
	for _, version := range history {
		if version.IsLatest {
			latest = append(latest, version)
		}
	}
	return latest
}

// LatestEquipment returns the open rows of an equipment history.
func LatestEquipment(history []domain.EquipmentVersion) []domain.EquipmentVersion {
	var latest []domain.EquipmentVersion
	for _, row := range history {
		if row.IsLatest {
			latest = append(latest, row)
		}
	}
	return latest
}

// LatestScores returns the open rows of a scores history.
func LatestScores(history []domain.ScoreVersion) []domain.ScoreVersion {
	var latest []domain.ScoreVersion
	for _, row := range history {
		if row.IsLatest {
			latest = append(latest, row)
		}
	}
	return latest
}
