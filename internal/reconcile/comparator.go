package reconcile

import (
	"InventoryTracker/internal/domain"
)

// trackedField pairs a column name with its change predicate. The set is
// fixed at compile time so a field added to domain.Vehicle without a
// tracking decision shows up in review, not as a silent no-op.
type trackedField struct {
	name    string
	changed func(old, new domain.Vehicle) bool
}

// trackedFields lists every attribute that participates in change
// detection. Equipment is tracked through its canonical fingerprint, so
// an equipment-only change still opens a new vehicle version.
var trackedFields = []trackedField{
	{"model_name", func(a, b domain.Vehicle) bool { return a.ModelName != b.ModelName }},
	{"price", func(a, b domain.Vehicle) bool { return numericChanged(a.Price, b.Price) }},
	{"kilometers", func(a, b domain.Vehicle) bool { return numericChanged(a.Kilometers, b.Kilometers) }},
	{"registration_date", func(a, b domain.Vehicle) bool { return a.RegistrationDate != b.RegistrationDate }},
	{"power_kw", func(a, b domain.Vehicle) bool { return numericChanged(a.PowerKW, b.PowerKW) }},
	{"power_ps", func(a, b domain.Vehicle) bool { return numericChanged(a.PowerPS, b.PowerPS) }},
	{"range_km", func(a, b domain.Vehicle) bool { return numericChanged(a.RangeKM, b.RangeKM) }},
	{"equipment", func(a, b domain.Vehicle) bool { return a.EquipmentFingerprint() != b.EquipmentFingerprint() }},
}

// Changed reports whether any tracked field differs between two versions
// of the same vehicle. It stops at the first mismatch; field order never
// affects the outcome, only how early it is found.
func Changed(old, new domain.Vehicle) bool {
	for _, field := range trackedFields {
		if field.changed(old, new) {
			return true
		}
	}
	return false
}

// ChangedFields returns the names of all tracked fields that differ.
// Used for merge logging; Changed is the hot path.
func ChangedFields(old, new domain.Vehicle) []string {
	var names []string
	for _, field := range trackedFields {
		if field.changed(old, new) {
			names = append(names, field.name)
		}
	}
	return names
}

// numericChanged treats two absent values as equal and an absent value
// as different from any present one. Present values compare exactly;
// snapshots are normalized upstream, so no tolerance is applied.
func numericChanged(a, b *float64) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return *a != *b
}
