package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"InventoryTracker/internal/domain"
)

func TestNumericChangeDetection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		old     *float64
		new     *float64
		changed bool
	}{
		{"both absent", nil, nil, false},
		{"value appears", nil, fp(100), true},
		{"value disappears", fp(100), nil, true},
		{"same value", fp(100), fp(100), false},
		{"different value", fp(100), fp(101), true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old := domain.Vehicle{ID: 1, Price: tc.old}
			new := domain.Vehicle{ID: 1, Price: tc.new}
			assert.Equal(t, tc.changed, Changed(old, new))
		})
	}
}

func TestEquipmentChangeByFingerprint(t *testing.T) {
	t.Parallel()

	base := domain.Vehicle{ID: 1, Equipment: map[string][]string{
		"Confort":  {"Sièges chauffants", "Climatisation"},
		"Sécurité": {"Régulateur adaptatif"},
	}}

	reordered := domain.Vehicle{ID: 1, Equipment: map[string][]string{
		"Sécurité": {"Régulateur adaptatif"},
		"Confort":  {"Climatisation", "Sièges chauffants"},
	}}
	assert.False(t, Changed(base, reordered), "ordering must not count as a change")

	duplicated := domain.Vehicle{ID: 1, Equipment: map[string][]string{
		"Confort":  {"Sièges chauffants", "Climatisation", "Climatisation"},
		"Sécurité": {"Régulateur adaptatif"},
	}}
	assert.False(t, Changed(base, duplicated), "duplicate entries must not count as a change")

	extended := domain.Vehicle{ID: 1, Equipment: map[string][]string{
		"Confort":  {"Sièges chauffants", "Climatisation", "Toit ouvrant"},
		"Sécurité": {"Régulateur adaptatif"},
	}}
	assert.True(t, Changed(base, extended))
}

func TestChangedFieldsListsEveryDifference(t *testing.T) {
	t.Parallel()

	old := domain.Vehicle{ID: 1, ModelName: "i4", Price: fp(59950), Kilometers: fp(9500)}
	new := domain.Vehicle{ID: 1, ModelName: "i4", Price: fp(57900), Kilometers: fp(9800)}

	assert.Equal(t, []string{"price", "kilometers"}, ChangedFields(old, new))
	assert.Nil(t, ChangedFields(old, old))
}
