package reconcile

import (
	"time"

	"InventoryTracker/internal/domain"
)

// MergeScores appends one fresh metrics row per currently open vehicle
// version. Unlike the vehicle stream there is no change gate: every run
// that reaches this stage rewrites the metrics for every active vehicle,
// with absent scores kept as explicit nils. Callers that want
// write-on-change semantics have to put a comparator in front.
//
// As with equipment, a previously open score row is superseded only
// within the vehicle's still-open version; a row left over from an
// earlier version is closed at that version's end and carried, so the
// old metric values stay queryable, and a row whose vehicle left the
// latest partition is closed at asOf.
func MergeScores(latestVehicles []domain.VehicleVersion, scores map[int64]domain.ScoreSet, history []domain.ScoreVersion, asOf time.Time) []domain.ScoreVersion {
	openSince := make(map[int64]time.Time, len(latestVehicles))
	for _, vehicle := range latestVehicles {
		if vehicle.IsLatest {
			openSince[vehicle.ID] = vehicle.ValidFrom
		}
	}

	merged := make([]domain.ScoreVersion, 0, len(history)+len(latestVehicles))
	for _, row := range history {
		if !row.IsLatest {
			merged = append(merged, row)
			continue
		}

		from, open := openSince[row.VehicleID]
		switch {
		case open && row.ValidFrom.Equal(from):
			continue
		case open:
			closedAt := from
			row.ValidTo = &closedAt
		default:
			closedAt := asOf
			row.ValidTo = &closedAt
		}
		row.IsLatest = false
		merged = append(merged, row)
	}

	var batch []domain.ScoreVersion
	// Ordered keep-last fold by vehicle id; at most one row per key.
	position := make(map[int64]int)

	for _, vehicle := range latestVehicles {
		if !vehicle.IsLatest {
			continue
		}

		row := domain.ScoreVersion{
			VehicleID: vehicle.ID,
			ScoreSet:  scores[vehicle.ID],
			ValidFrom: vehicle.ValidFrom,
			ValidTo:   vehicle.ValidTo,
			IsLatest:  vehicle.IsLatest,
			ScrapedAt: vehicle.ScrapedAt,
		}

		if at, ok := position[vehicle.ID]; ok {
			batch[at] = row
			continue
		}
		position[vehicle.ID] = len(batch)
		batch = append(batch, row)
	}

	return append(merged, batch...)
}
