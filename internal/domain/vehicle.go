package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// NullText is the canonical string form of an absent numeric value.
// It is deliberately distinct from any value the scrapers can produce,
// so "missing" never collides with a real field when stringified.
const NullText = "null"

// Vehicle is one snapshot row for a single listed car.
type Vehicle struct {
	ID               int64
	ModelName        string
	Price            *float64
	Kilometers       *float64
	PowerKW          *float64
	PowerPS          *float64
	RangeKM          *float64
	RegistrationDate string
	// Equipment maps a category label to the equipment names listed
	// under it on the detail page.
	Equipment map[string][]string
	// Link is the source locator for the listing; not change-tracked.
	Link string
}

// EquipmentFingerprint flattens the nested equipment collection into a
// canonical sorted string. Two vehicles with the same equipment set
// produce the same fingerprint regardless of source ordering or
// duplicated entries.
func (v Vehicle) EquipmentFingerprint() string {
	if len(v.Equipment) == 0 {
		return ""
	}

	seen := map[string]struct{}{}
	pairs := make([]string, 0, len(v.Equipment))
	for category, items := range v.Equipment {
		for _, item := range items {
			pair := category + "\x1f" + item
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}
			pairs = append(pairs, pair)
		}
	}

	sort.Strings(pairs)
	return strings.Join(pairs, "\x1e")
}

// FormatNumeric renders an optional numeric field for serialization and
// fingerprinting, mapping nil to NullText.
func FormatNumeric(v *float64) string {
	if v == nil {
		return NullText
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Status describes whether a car is still present in the latest snapshot.
type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
)

// VehicleVersion is one persisted version of a vehicle, valid for the
// half-open interval [ValidFrom, ValidTo).
type VehicleVersion struct {
	Vehicle
	FirstSeen time.Time
	LastSeen  time.Time
	ValidFrom time.Time
	ValidTo   *time.Time
	IsLatest  bool
	Status    Status
	ScrapedAt time.Time
}

// EquipmentVersion is one flattened equipment row tied to the validity
// window of the vehicle version it was observed on.
type EquipmentVersion struct {
	VehicleID int64
	Category  string
	Name      string
	ValidFrom time.Time
	ValidTo   *time.Time
	IsLatest  bool
	ScrapedAt time.Time
}

// ScoreSet carries the derived metrics attached to one snapshot row.
// Any score may be absent when its inputs were missing.
type ScoreSet struct {
	ValueEfficiency  *float64
	AgeUsage         *float64
	PerformanceRange *float64
	Equipment        *float64
	Final            *float64
}

// ScoreVersion is one persisted metrics row for a vehicle version.
type ScoreVersion struct {
	VehicleID int64
	ScoreSet
	ValidFrom time.Time
	ValidTo   *time.Time
	IsLatest  bool
	ScrapedAt time.Time
}

// ReconciliationResult bundles the three history tables produced by one
// reconciliation run so they can be persisted and validated together.
type ReconciliationResult struct {
	Vehicles  []VehicleVersion
	Equipment []EquipmentVersion
	Scores    []ScoreVersion
}
