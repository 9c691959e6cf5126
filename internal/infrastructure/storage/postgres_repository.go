package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/ports"
	"InventoryTracker/internal/reconcile"
)

// insertChunkSize caps how many rows go into a single INSERT statement.
const insertChunkSize = 500

// PostgresRepository mirrors reconciliation results into Postgres. The
// CSV store stays the durable source of truth; the database is a
// queryable replica refreshed after every successful run.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ ports.DatabaseSink = (*PostgresRepository)(nil)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

// SyncAll refreshes the current-state cars table and replaces the three
// history tables inside one transaction.
func (r *PostgresRepository) SyncAll(ctx context.Context, result domain.ReconciliationResult) error {
	if r.db == nil {
		return fmt.Errorf("postgres sink is not configured")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.syncCurrentCars(ctx, tx, reconcile.LatestVehicles(result.Vehicles)); err != nil {
		return err
	}
	if err := r.replaceVehicleHistory(ctx, tx, result.Vehicles); err != nil {
		return err
	}
	if err := r.replaceEquipmentHistory(ctx, tx, result.Equipment); err != nil {
		return err
	}
	if err := r.replaceScoreHistory(ctx, tx, result.Scores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}
	return nil
}

// existingVehicleIDs returns which of the given keys already have a row
// in the current-state table. Only used for insert/update accounting.
func (r *PostgresRepository) existingVehicleIDs(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]bool, error) {
	if len(ids) == 0 {
		return map[int64]bool{}, nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT car_id FROM cars WHERE car_id = ANY($1)`, pq.Int64Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query existing cars: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan car id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return existing, nil
}

func (r *PostgresRepository) syncCurrentCars(ctx context.Context, tx *sql.Tx, latest []domain.VehicleVersion) error {
	ids := make([]int64, 0, len(latest))
	for _, v := range latest {
		ids = append(ids, v.ID)
	}
	existing, err := r.existingVehicleIDs(ctx, tx, ids)
	if err != nil {
		return err
	}

	var inserted, updated int
	for _, v := range latest {
		query, args, err := psql.Insert("cars").
			Columns("car_id", "model_name", "price", "first_seen_date", "last_seen_date", "status", "link").
			Values(v.ID, v.ModelName, nullableFloat(v.Price), v.FirstSeen, v.LastSeen, string(v.Status), v.Link).
			Suffix(`ON CONFLICT (car_id) DO UPDATE
				SET model_name = EXCLUDED.model_name,
				    price = EXCLUDED.price,
				    last_seen_date = EXCLUDED.last_seen_date,
				    status = EXCLUDED.status,
				    link = EXCLUDED.link,
				    updated_at = NOW()`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build cars upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert car %d: %w", v.ID, err)
		}

		if existing[v.ID] {
			updated++
		} else {
			inserted++
		}
	}

	r.info("current cars synced", "inserted", inserted, "updated", updated)
	return nil
}

func (r *PostgresRepository) replaceVehicleHistory(ctx context.Context, tx *sql.Tx, history []domain.VehicleVersion) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cars_history`); err != nil {
		return fmt.Errorf("clear cars_history: %w", err)
	}

	for start := 0; start < len(history); start += insertChunkSize {
		chunk := history[start:min(start+insertChunkSize, len(history))]
		builder := psql.Insert("cars_history").Columns(
			"car_id", "model_name", "price", "kilometers", "registration_date",
			"power_kw", "power_ps", "range_km",
			"first_seen_date", "last_seen_date", "valid_from", "valid_to",
			"is_latest", "status", "link", "scrape_date",
		)
		for _, v := range chunk {
			builder = builder.Values(
				v.ID, v.ModelName, nullableFloat(v.Price), nullableFloat(v.Kilometers), v.RegistrationDate,
				nullableFloat(v.PowerKW), nullableFloat(v.PowerPS), nullableFloat(v.RangeKM),
				v.FirstSeen, v.LastSeen, v.ValidFrom, nullableTime(v.ValidTo),
				v.IsLatest, string(v.Status), v.Link, v.ScrapedAt,
			)
		}
		if err := execInsert(ctx, tx, builder, "cars_history"); err != nil {
			return err
		}
	}

	r.info("vehicle history replaced", "rows", len(history))
	return nil
}

func (r *PostgresRepository) replaceEquipmentHistory(ctx context.Context, tx *sql.Tx, history []domain.EquipmentVersion) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM equipment_history`); err != nil {
		return fmt.Errorf("clear equipment_history: %w", err)
	}

	for start := 0; start < len(history); start += insertChunkSize {
		chunk := history[start:min(start+insertChunkSize, len(history))]
		builder := psql.Insert("equipment_history").Columns(
			"car_id", "category", "equipment_name",
			"valid_from", "valid_to", "is_latest", "scrape_date",
		)
		for _, e := range chunk {
			builder = builder.Values(
				e.VehicleID, e.Category, e.Name,
				e.ValidFrom, nullableTime(e.ValidTo), e.IsLatest, e.ScrapedAt,
			)
		}
		if err := execInsert(ctx, tx, builder, "equipment_history"); err != nil {
			return err
		}
	}

	r.info("equipment history replaced", "rows", len(history))
	return nil
}

func (r *PostgresRepository) replaceScoreHistory(ctx context.Context, tx *sql.Tx, history []domain.ScoreVersion) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM scores_history`); err != nil {
		return fmt.Errorf("clear scores_history: %w", err)
	}

	for start := 0; start < len(history); start += insertChunkSize {
		chunk := history[start:min(start+insertChunkSize, len(history))]
		builder := psql.Insert("scores_history").Columns(
			"car_id", "value_efficiency_score", "age_usage_score",
			"performance_range_score", "equipment_score", "final_score",
			"valid_from", "valid_to", "is_latest", "scrape_date",
		)
		for _, sc := range chunk {
			builder = builder.Values(
				sc.VehicleID, nullableFloat(sc.ValueEfficiency), nullableFloat(sc.AgeUsage),
				nullableFloat(sc.PerformanceRange), nullableFloat(sc.Equipment), nullableFloat(sc.Final),
				sc.ValidFrom, nullableTime(sc.ValidTo), sc.IsLatest, sc.ScrapedAt,
			)
		}
		if err := execInsert(ctx, tx, builder, "scores_history"); err != nil {
			return err
		}
	}

	r.info("scores history replaced", "rows", len(history))
	return nil
}

func execInsert(ctx context.Context, tx *sql.Tx, builder sq.InsertBuilder, table string) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *PostgresRepository) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}
