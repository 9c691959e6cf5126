package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InventoryTracker/internal/domain"
)

// TestRunMultiDayScenario drives three consecutive runs through the full
// merge and checks the invariants hold at every step: a price change, a
// disappearance, and an arrival on day two, then a quiet day three.
func TestRunMultiDayScenario(t *testing.T) {
	t.Parallel()

	carA := testVehicle(1, 59950)
	carB := testVehicle(2, 61000)

	result, err := Run([]domain.Vehicle{carA, carB}, nil, Histories{}, day(1))
	require.NoError(t, err)
	require.NoError(t, Validate(result))
	assert.Len(t, result.Vehicles, 2)
	assert.Len(t, LatestVehicles(result.Vehicles), 2)

	carARepriced := testVehicle(1, 57900)
	carC := testVehicle(3, 48000)

	result, err = Run(
		[]domain.Vehicle{carARepriced, carC},
		map[int64]domain.ScoreSet{1: {Final: fp(80)}, 3: {Final: fp(65)}},
		Histories{Vehicles: result.Vehicles, Equipment: result.Equipment, Scores: result.Scores},
		day(2),
	)
	require.NoError(t, err)
	require.NoError(t, Validate(result))

	// Car A: closed + reopened. Car B: retired. Car C: new.
	assert.Len(t, result.Vehicles, 4)
	latest := LatestVehicles(result.Vehicles)
	require.Len(t, latest, 2)
	for _, row := range latest {
		assert.Equal(t, domain.StatusActive, row.Status)
	}

	// Car A's day-one equipment and score windows survive closed.
	assert.Len(t, result.Equipment, 4)
	assert.Len(t, LatestEquipment(result.Equipment), 2)
	assert.Len(t, result.Scores, 4)
	assert.Len(t, LatestScores(result.Scores), 2)

	result, err = Run(
		[]domain.Vehicle{carARepriced, carC},
		map[int64]domain.ScoreSet{1: {Final: fp(80)}, 3: {Final: fp(65)}},
		Histories{Vehicles: result.Vehicles, Equipment: result.Equipment, Scores: result.Scores},
		day(3),
	)
	require.NoError(t, err)
	require.NoError(t, Validate(result))
	assert.Len(t, result.Vehicles, 4, "a quiet run must not grow the vehicle history")
	assert.Len(t, LatestVehicles(result.Vehicles), 2)
	assert.Len(t, result.Equipment, 4, "a quiet run must not grow the equipment history")
	assert.Len(t, result.Scores, 4)
}

func TestRunRejectsDuplicateSnapshot(t *testing.T) {
	t.Parallel()

	_, err := Run([]domain.Vehicle{testVehicle(1, 1000), testVehicle(1, 2000)}, nil, Histories{}, day(1))
	require.Error(t, err)
}

func TestValidateRejectsDoubleOpenVehicle(t *testing.T) {
	t.Parallel()

	open := openVehicle(1, nil, 1)
	err := Validate(domain.ReconciliationResult{Vehicles: []domain.VehicleVersion{open, open}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one open version")
}

func TestValidateRejectsOrphanOpenRows(t *testing.T) {
	t.Parallel()

	orphanEquipment := domain.EquipmentVersion{VehicleID: 5, Category: "Confort", Name: "Climatisation", ValidFrom: day(1), IsLatest: true}
	err := Validate(domain.ReconciliationResult{Equipment: []domain.EquipmentVersion{orphanEquipment}})
	require.Error(t, err)

	orphanScore := domain.ScoreVersion{VehicleID: 5, ValidFrom: day(1), IsLatest: true}
	err = Validate(domain.ReconciliationResult{Scores: []domain.ScoreVersion{orphanScore}})
	require.Error(t, err)
}

func TestValidateRejectsOpenRowWithValidTo(t *testing.T) {
	t.Parallel()

	closedAt := day(2)
	bad := openVehicle(1, nil, 1)
	bad.ValidTo = &closedAt

	err := Validate(domain.ReconciliationResult{Vehicles: []domain.VehicleVersion{bad}})
	require.Error(t, err)
}
