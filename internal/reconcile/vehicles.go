package reconcile

import (
	"fmt"
	"time"

	"InventoryTracker/internal/domain"
)

// DuplicateKeyError reports a snapshot that lists the same vehicle more
// than once. Picking one of the rows silently would make the resulting
// version ambiguous, so the whole run is rejected instead.
type DuplicateKeyError struct {
	VehicleID int64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("snapshot contains vehicle %d more than once", e.VehicleID)
}

// MergeVehicles folds one snapshot into the vehicle history using SCD
// Type 2 semantics. The input history is never mutated; the returned
// slice is a complete replacement table.
//
// Per snapshot row: an unknown key opens a brand new version, an
// unchanged key re-stamps the open version in place, a changed key
// closes the open version at asOf and opens a new one. Active keys that
// vanished from the snapshot are closed with status retired. Rows that
// were already closed are carried over verbatim.
func MergeVehicles(snapshot []domain.Vehicle, history []domain.VehicleVersion, asOf time.Time) ([]domain.VehicleVersion, error) {
	latestByID := make(map[int64]domain.VehicleVersion)
	merged := make([]domain.VehicleVersion, 0, len(history)+len(snapshot))

	for _, version := range history {
		if version.IsLatest {
			latestByID[version.ID] = version
		} else {
			merged = append(merged, version)
		}
	}

	inSnapshot := make(map[int64]struct{}, len(snapshot))

	for _, row := range snapshot {
		if _, ok := inSnapshot[row.ID]; ok {
			return nil, &DuplicateKeyError{VehicleID: row.ID}
		}
		inSnapshot[row.ID] = struct{}{}

		current, known := latestByID[row.ID]
		switch {
		case !known:
			merged = append(merged, domain.VehicleVersion{
				Vehicle:   row,
				FirstSeen: asOf,
				LastSeen:  asOf,
				ValidFrom: asOf,
				ValidTo:   nil,
				IsLatest:  true,
				Status:    domain.StatusActive,
				ScrapedAt: asOf,
			})

		case !Changed(current.Vehicle, row):
			current.LastSeen = asOf
			current.ScrapedAt = asOf
			merged = append(merged, current)

		default:
			closedAt := asOf
			closed := current
			closed.ValidTo = &closedAt
			closed.IsLatest = false
			merged = append(merged, closed)

			merged = append(merged, domain.VehicleVersion{
				Vehicle:   row,
				FirstSeen: current.FirstSeen,
				LastSeen:  asOf,
				ValidFrom: asOf,
				ValidTo:   nil,
				IsLatest:  true,
				Status:    domain.StatusActive,
				ScrapedAt: asOf,
			})
		}
	}

	// Retirement pass: walk the original history order so the output
	// stays deterministic across runs.
	for _, version := range history {
		if !version.IsLatest {
			continue
		}
		if _, ok := inSnapshot[version.ID]; ok {
			continue
		}
		if version.Status != domain.StatusActive {
			// Already retired earlier; keep the closed row as-is.
			merged = append(merged, version)
			continue
		}

		retiredAt := asOf
		retired := version
		retired.ValidTo = &retiredAt
		retired.IsLatest = false
		retired.Status = domain.StatusRetired
		merged = append(merged, retired)
	}

	return merged, nil
}
