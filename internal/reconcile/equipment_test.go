package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InventoryTracker/internal/domain"
)

func openVehicle(id int64, equipment map[string][]string, from int) domain.VehicleVersion {
	return domain.VehicleVersion{
		Vehicle:   domain.Vehicle{ID: id, Equipment: equipment},
		FirstSeen: day(from),
		LastSeen:  day(from),
		ValidFrom: day(from),
		IsLatest:  true,
		Status:    domain.StatusActive,
		ScrapedAt: day(from),
	}
}

func TestMergeEquipmentFlattensAndDedupes(t *testing.T) {
	t.Parallel()

	vehicle := openVehicle(1, map[string][]string{
		"Confort":  {"Climatisation", "Climatisation", "Sièges chauffants"},
		"Sécurité": {"Régulateur adaptatif", ""},
	}, 1)

	merged := MergeEquipment([]domain.VehicleVersion{vehicle}, nil, day(1))
	require.Len(t, merged, 3, "duplicates and empty names must be dropped")

	assert.Equal(t, "Climatisation", merged[0].Name)
	assert.Equal(t, "Sièges chauffants", merged[1].Name)
	assert.Equal(t, "Régulateur adaptatif", merged[2].Name)
	for _, row := range merged {
		assert.Equal(t, day(1), row.ValidFrom, "rows inherit the vehicle version window")
		assert.True(t, row.IsLatest)
		assert.Nil(t, row.ValidTo)
	}
}

func TestMergeEquipmentSupersedesOpenRows(t *testing.T) {
	t.Parallel()

	vehicle := openVehicle(1, map[string][]string{"Confort": {"Climatisation"}}, 1)

	first := MergeEquipment([]domain.VehicleVersion{vehicle}, nil, day(1))
	require.Len(t, first, 1)

	// Same vehicle on the next run: the open row is replaced, not stacked.
	vehicle.LastSeen = day(2)
	vehicle.ScrapedAt = day(2)
	second := MergeEquipment([]domain.VehicleVersion{vehicle}, first, day(2))
	require.Len(t, second, 1)
	assert.True(t, second[0].IsLatest)
	assert.Equal(t, day(1), second[0].ValidFrom)
	assert.Equal(t, day(2), second[0].ScrapedAt)
}

func TestMergeEquipmentKeepsHistoryAcrossVehicleReversion(t *testing.T) {
	t.Parallel()

	vehicle := openVehicle(1, map[string][]string{"Confort": {"Sièges chauffants"}}, 1)
	first := MergeEquipment([]domain.VehicleVersion{vehicle}, nil, day(1))
	require.Len(t, first, 1)

	// Run two re-versions the vehicle (price change): the open vehicle
	// row now starts at day 2 while the equipment window started day 1.
	reversioned := vehicle
	reversioned.ValidFrom = day(2)
	reversioned.ScrapedAt = day(2)

	second := MergeEquipment([]domain.VehicleVersion{reversioned}, first, day(2))
	require.Len(t, second, 2, "the old window must survive as a closed row")

	closed, open := second[0], second[1]
	assert.False(t, closed.IsLatest)
	assert.Equal(t, day(1), closed.ValidFrom)
	require.NotNil(t, closed.ValidTo)
	assert.Equal(t, day(2), *closed.ValidTo, "old window ends where the new version begins")

	assert.True(t, open.IsLatest)
	assert.Equal(t, day(2), open.ValidFrom)
	assert.Nil(t, open.ValidTo)
}

func TestMergeEquipmentClosesWhenVehicleGone(t *testing.T) {
	t.Parallel()

	vehicle := openVehicle(1, map[string][]string{"Confort": {"Climatisation"}}, 1)
	first := MergeEquipment([]domain.VehicleVersion{vehicle}, nil, day(1))

	second := MergeEquipment(nil, first, day(2))
	require.Len(t, second, 1)
	assert.False(t, second[0].IsLatest)
	require.NotNil(t, second[0].ValidTo)
	assert.Equal(t, day(2), *second[0].ValidTo)
}

func TestMergeEquipmentCarriesClosedRows(t *testing.T) {
	t.Parallel()

	closedAt := day(1)
	closed := domain.EquipmentVersion{
		VehicleID: 9,
		Category:  "Confort",
		Name:      "Toit ouvrant",
		ValidFrom: day(1),
		ValidTo:   &closedAt,
		IsLatest:  false,
		ScrapedAt: day(1),
	}

	merged := MergeEquipment(nil, []domain.EquipmentVersion{closed}, day(5))
	require.Len(t, merged, 1)
	assert.Equal(t, closed, merged[0])
}
