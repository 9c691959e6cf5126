package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InventoryTracker/internal/domain"
)

func fp(v float64) *float64 {
	return &v
}

func newTestStore(t *testing.T) *CSVStore {
	t.Helper()
	dir := t.TempDir()
	return NewCSVStore(
		filepath.Join(dir, "vehicles_history.csv"),
		filepath.Join(dir, "equipment_history.csv"),
		filepath.Join(dir, "scores_history.csv"),
		nil,
	)
}

func TestLoadMissingFilesYieldEmptyHistories(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	vehicles, err := store.LoadVehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)

	equipment, err := store.LoadEquipment(ctx)
	require.NoError(t, err)
	assert.Empty(t, equipment)

	scores, err := store.LoadScores(ctx)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	closedAt := time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)
	scraped := time.Date(2026, time.August, 2, 6, 30, 0, 0, time.UTC)

	result := domain.ReconciliationResult{
		Vehicles: []domain.VehicleVersion{
			{
				Vehicle: domain.Vehicle{
					ID:               123456,
					ModelName:        "BMW i4 eDrive40",
					Price:            fp(59950),
					Kilometers:       fp(9500),
					PowerKW:          fp(250),
					RegistrationDate: "2025-08",
					Equipment:        map[string][]string{"Confort": {"Climatisation"}},
					Link:             "https://example.test/detail/123456",
				},
				FirstSeen: closedAt.AddDate(0, 0, -1),
				LastSeen:  closedAt,
				ValidFrom: closedAt.AddDate(0, 0, -1),
				ValidTo:   &closedAt,
				IsLatest:  false,
				Status:    domain.StatusActive,
				ScrapedAt: scraped,
			},
		},
		Equipment: []domain.EquipmentVersion{
			{
				VehicleID: 123456,
				Category:  "Confort",
				Name:      "Climatisation",
				ValidFrom: closedAt,
				IsLatest:  true,
				ScrapedAt: scraped,
			},
		},
		Scores: []domain.ScoreVersion{
			{
				VehicleID: 123456,
				ScoreSet:  domain.ScoreSet{Final: fp(72.5)},
				ValidFrom: closedAt,
				IsLatest:  true,
				ScrapedAt: scraped,
			},
		},
	}

	require.NoError(t, store.Save(ctx, result))

	vehicles, err := store.LoadVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	v := vehicles[0]
	assert.Equal(t, int64(123456), v.ID)
	assert.Equal(t, "BMW i4 eDrive40", v.ModelName)
	assert.Equal(t, fp(59950), v.Price)
	assert.Nil(t, v.PowerPS, "absent numeric survives the roundtrip as nil")
	assert.Equal(t, map[string][]string{"Confort": {"Climatisation"}}, v.Equipment)
	require.NotNil(t, v.ValidTo)
	assert.Equal(t, closedAt, *v.ValidTo)
	assert.False(t, v.IsLatest)
	assert.Equal(t, domain.StatusActive, v.Status)
	assert.Equal(t, scraped, v.ScrapedAt)

	equipment, err := store.LoadEquipment(ctx)
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Equal(t, "Climatisation", equipment[0].Name)
	assert.True(t, equipment[0].IsLatest)
	assert.Nil(t, equipment[0].ValidTo)

	scores, err := store.LoadScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, fp(72.5), scores[0].Final)
	assert.Nil(t, scores[0].Equipment)
}

func TestLoadSkipsRowsWithBadKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := "car_id,category,equipment_name,valid_from,valid_to,is_latest,scrape_date\n" +
		"not-a-number,Confort,Climatisation,2026-08-01,,true,2026-08-01T06:00:00Z\n" +
		"42,Confort,Climatisation,2026-08-01,,true,2026-08-01T06:00:00Z\n"
	require.NoError(t, os.WriteFile(store.equipmentPath, []byte(content), 0o644))

	equipment, err := store.LoadEquipment(context.Background())
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Equal(t, int64(42), equipment[0].VehicleID)
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.vehiclePath, []byte("car_id,model_name\n\"unterminated\n"), 0o644))

	vehicles, err := store.LoadVehicles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}

func TestLoadMissingColumnStartsFresh(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.scoresPath, []byte("car_id,final_score\n1,50\n"), 0o644))

	scores, err := store.LoadScores(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestMalformedTimestampLoadsAsNull(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := "car_id,category,equipment_name,valid_from,valid_to,is_latest,scrape_date\n" +
		"42,Confort,Climatisation,2026-08-01,garbage,true,2026-08-01T06:00:00Z\n"
	require.NoError(t, os.WriteFile(store.equipmentPath, []byte(content), 0o644))

	equipment, err := store.LoadEquipment(context.Background())
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Nil(t, equipment[0].ValidTo)
}
