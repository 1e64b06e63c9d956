package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/collision-cli/internal/db"
	"github.com/sells-group/collision-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close the pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS boroughs (
	borough_name TEXT PRIMARY KEY,
	position     INTEGER NOT NULL,
	lat_min      DOUBLE PRECISION NOT NULL,
	lat_max      DOUBLE PRECISION NOT NULL,
	lon_min      DOUBLE PRECISION NOT NULL,
	lon_max      DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS collisions (
	collision_id                 BIGSERIAL PRIMARY KEY,
	severity_score               INTEGER NOT NULL,
	severity_category            TEXT NOT NULL,
	crash_rate                   DOUBLE PRECISION NOT NULL,
	day_of_week                  TEXT NOT NULL,
	time_of_day                  TEXT NOT NULL,
	hour_of_day                  INTEGER,
	month                        INTEGER,
	vehicle_category             TEXT NOT NULL,
	contributing_factor_category TEXT NOT NULL,
	location_grid                TEXT NOT NULL,
	collision_cluster            INTEGER NOT NULL,
	latitude                     DOUBLE PRECISION NOT NULL,
	longitude                    DOUBLE PRECISION NOT NULL,
	borough                      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS global_statistics (
	version               TEXT PRIMARY KEY,
	computed_at           TIMESTAMPTZ NOT NULL,
	total_collisions      INTEGER NOT NULL,
	avg_crash_rate        DOUBLE PRECISION NOT NULL,
	most_frequent_borough TEXT NOT NULL,
	peak_collision_time   TEXT NOT NULL,
	severity_distribution JSONB NOT NULL,
	most_frequent_day     TEXT NOT NULL,
	most_common_factor    TEXT NOT NULL,
	most_common_vehicle   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_location ON collisions(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_borough ON collisions(borough);
CREATE INDEX IF NOT EXISTS idx_datetime ON collisions(day_of_week, time_of_day, month);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ReplaceBoroughs upserts every box and removes boxes no longer listed.
func (s *PostgresStore) ReplaceBoroughs(ctx context.Context, boroughs []model.Borough) error {
	rows := make([][]any, len(boroughs))
	names := make([]string, len(boroughs))
	for i, b := range boroughs {
		rows[i] = []any{b.Name, i, b.LatMin, b.LatMax, b.LonMin, b.LonMax}
		names[i] = b.Name
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "boroughs",
		Columns:      boroughColumns,
		ConflictKeys: []string{"borough_name"},
	}, rows); err != nil {
		return eris.Wrap(err, "postgres: upsert boroughs")
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM boroughs WHERE NOT (borough_name = ANY($1))`, names); err != nil {
		return eris.Wrap(err, "postgres: prune boroughs")
	}
	return nil
}

// ReplaceCollisions truncates the table and bulk-loads records with COPY in one transaction.
func (s *PostgresStore) ReplaceCollisions(ctx context.Context, records []model.Collision) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace collisions")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE collisions RESTART IDENTITY`); err != nil {
		return 0, eris.Wrap(err, "postgres: truncate collisions")
	}

	n, err := db.CopyFromFunc(ctx, tx, "collisions", collisionColumns, len(records),
		func(i int) ([]any, error) { return collisionValues(&records[i]), nil })
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy collisions")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit collisions")
	}
	return n, nil
}

func (s *PostgresStore) SaveGlobalStatistics(ctx context.Context, st model.GlobalStatistics) error {
	dist, err := json.Marshal(st.SeverityDistribution)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal severity distribution")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save statistics")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM global_statistics`); err != nil {
		return eris.Wrap(err, "postgres: clear statistics")
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO global_statistics (version, computed_at, total_collisions, avg_crash_rate,
			most_frequent_borough, peak_collision_time, severity_distribution,
			most_frequent_day, most_common_factor, most_common_vehicle)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		st.Version, st.ComputedAt.UTC(), st.TotalCollisions, st.AvgCrashRate,
		st.MostFrequentBorough, st.PeakCollisionTime, string(dist),
		st.MostFrequentDay, st.MostCommonFactor, st.MostCommonVehicle,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert statistics")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit statistics")
	}
	return nil
}

func (s *PostgresStore) GlobalStatistics(ctx context.Context) (*model.GlobalStatistics, error) {
	var (
		st   model.GlobalStatistics
		dist []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT version, computed_at, total_collisions, avg_crash_rate, most_frequent_borough,
			peak_collision_time, severity_distribution, most_frequent_day,
			most_common_factor, most_common_vehicle
		FROM global_statistics LIMIT 1`,
	).Scan(&st.Version, &st.ComputedAt, &st.TotalCollisions, &st.AvgCrashRate,
		&st.MostFrequentBorough, &st.PeakCollisionTime, &dist, &st.MostFrequentDay,
		&st.MostCommonFactor, &st.MostCommonVehicle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoStatistics
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get statistics")
	}
	if err := json.Unmarshal(dist, &st.SeverityDistribution); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal severity distribution")
	}
	st.ComputedAt = st.ComputedAt.UTC()
	return &st, nil
}

func (s *PostgresStore) Boroughs(ctx context.Context) ([]model.Borough, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT borough_name, lat_min, lat_max, lon_min, lon_max FROM boroughs ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list boroughs")
	}
	defer rows.Close()

	var out []model.Borough
	for rows.Next() {
		var b model.Borough
		if err := rows.Scan(&b.Name, &b.LatMin, &b.LatMax, &b.LonMin, &b.LonMax); err != nil {
			return nil, eris.Wrap(err, "postgres: scan borough")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate boroughs")
}

func (s *PostgresStore) QueryCollisions(ctx context.Context, f CollisionFilter) ([]model.Collision, error) {
	query, args, ok := buildQuery(f, dollar)
	if !ok {
		return []model.Collision{}, nil
	}
	return s.collect(ctx, query, args...)
}

func (s *PostgresStore) AllCollisions(ctx context.Context) ([]model.Collision, error) {
	return s.collect(ctx, selectCollisions()+" ORDER BY collision_id")
}

func (s *PostgresStore) collect(ctx context.Context, query string, args ...any) ([]model.Collision, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query collisions")
	}
	defer rows.Close()

	out := []model.Collision{}
	for rows.Next() {
		c, err := scanCollision(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan collision")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate collisions")
}

func (s *PostgresStore) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if !IsDistinctColumn(column) {
		return nil, eris.Errorf("postgres: column %q is not queryable", column)
	}
	rows, err := s.pool.Query(ctx, distinctQuery(column))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: distinct %s", column)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var (
			order any
			v     string
		)
		if err := rows.Scan(&order, &v); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan distinct %s", column)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate distinct %s", column)
}

func (s *PostgresStore) AvgCrashRate(ctx context.Context, q CrashRateQuery) (float64, bool, error) {
	var avg *float64
	err := s.pool.QueryRow(ctx, avgCrashRateQuery(dollar),
		q.Borough, q.TimeOfDay, q.Month, q.Day).Scan(&avg)
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: avg crash rate")
	}
	if avg == nil {
		return 0, false, nil
	}
	return *avg, true, nil
}
