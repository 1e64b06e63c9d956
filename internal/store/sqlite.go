package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/collision-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS boroughs (
	borough_name TEXT PRIMARY KEY,
	position     INTEGER NOT NULL,
	lat_min      REAL NOT NULL,
	lat_max      REAL NOT NULL,
	lon_min      REAL NOT NULL,
	lon_max      REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS collisions (
	collision_id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	severity_score               INTEGER NOT NULL,
	severity_category            TEXT NOT NULL,
	crash_rate                   REAL NOT NULL,
	day_of_week                  TEXT NOT NULL,
	time_of_day                  TEXT NOT NULL,
	hour_of_day                  INTEGER,
	month                        INTEGER,
	vehicle_category             TEXT NOT NULL,
	contributing_factor_category TEXT NOT NULL,
	location_grid                TEXT NOT NULL,
	collision_cluster            INTEGER NOT NULL,
	latitude                     REAL NOT NULL,
	longitude                    REAL NOT NULL,
	borough                      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS global_statistics (
	version               TEXT PRIMARY KEY,
	computed_at           DATETIME NOT NULL,
	total_collisions      INTEGER NOT NULL,
	avg_crash_rate        REAL NOT NULL,
	most_frequent_borough TEXT NOT NULL,
	peak_collision_time   TEXT NOT NULL,
	severity_distribution TEXT NOT NULL,
	most_frequent_day     TEXT NOT NULL,
	most_common_factor    TEXT NOT NULL,
	most_common_vehicle   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_location ON collisions(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_borough ON collisions(borough);
CREATE INDEX IF NOT EXISTS idx_datetime ON collisions(day_of_week, time_of_day, month);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceBoroughs(ctx context.Context, boroughs []model.Borough) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace boroughs")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM boroughs`); err != nil {
		return eris.Wrap(err, "sqlite: clear boroughs")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO boroughs (`+strings.Join(boroughColumns, ", ")+`) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare borough insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, b := range boroughs {
		if _, err := stmt.ExecContext(ctx, b.Name, i, b.LatMin, b.LatMax, b.LonMin, b.LonMax); err != nil {
			return eris.Wrapf(err, "sqlite: insert borough %s", b.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit boroughs")
}

func (s *SQLiteStore) ReplaceCollisions(ctx context.Context, records []model.Collision) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace collisions")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM collisions`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear collisions")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'collisions'`); err != nil {
		return 0, eris.Wrap(err, "sqlite: reset collision ids")
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(collisionColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO collisions (`+strings.Join(collisionColumns, ", ")+`) VALUES (`+marks+`)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare collision insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range records {
		if _, err := stmt.ExecContext(ctx, collisionValues(&records[i])...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert collision %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit collisions")
	}
	return int64(len(records)), nil
}

func (s *SQLiteStore) SaveGlobalStatistics(ctx context.Context, st model.GlobalStatistics) error {
	dist, err := json.Marshal(st.SeverityDistribution)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal severity distribution")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save statistics")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM global_statistics`); err != nil {
		return eris.Wrap(err, "sqlite: clear statistics")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO global_statistics (version, computed_at, total_collisions, avg_crash_rate,
			most_frequent_borough, peak_collision_time, severity_distribution,
			most_frequent_day, most_common_factor, most_common_vehicle)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Version, st.ComputedAt.UTC(), st.TotalCollisions, st.AvgCrashRate,
		st.MostFrequentBorough, st.PeakCollisionTime, string(dist),
		st.MostFrequentDay, st.MostCommonFactor, st.MostCommonVehicle,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert statistics")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit statistics")
}

func (s *SQLiteStore) GlobalStatistics(ctx context.Context) (*model.GlobalStatistics, error) {
	var (
		st   model.GlobalStatistics
		dist string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, computed_at, total_collisions, avg_crash_rate, most_frequent_borough,
			peak_collision_time, severity_distribution, most_frequent_day,
			most_common_factor, most_common_vehicle
		FROM global_statistics LIMIT 1`,
	).Scan(&st.Version, &st.ComputedAt, &st.TotalCollisions, &st.AvgCrashRate,
		&st.MostFrequentBorough, &st.PeakCollisionTime, &dist, &st.MostFrequentDay,
		&st.MostCommonFactor, &st.MostCommonVehicle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoStatistics
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get statistics")
	}
	if err := json.Unmarshal([]byte(dist), &st.SeverityDistribution); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal severity distribution")
	}
	st.ComputedAt = st.ComputedAt.UTC().Truncate(time.Microsecond)
	return &st, nil
}

func (s *SQLiteStore) Boroughs(ctx context.Context) ([]model.Borough, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT borough_name, lat_min, lat_max, lon_min, lon_max FROM boroughs ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list boroughs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Borough
	for rows.Next() {
		var b model.Borough
		if err := rows.Scan(&b.Name, &b.LatMin, &b.LatMax, &b.LonMin, &b.LonMax); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan borough")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate boroughs")
}

func (s *SQLiteStore) QueryCollisions(ctx context.Context, f CollisionFilter) ([]model.Collision, error) {
	query, args, ok := buildQuery(f, questionMark)
	if !ok {
		return []model.Collision{}, nil
	}
	return s.collect(ctx, query, args...)
}

func (s *SQLiteStore) AllCollisions(ctx context.Context) ([]model.Collision, error) {
	return s.collect(ctx, selectCollisions()+" ORDER BY collision_id")
}

func (s *SQLiteStore) collect(ctx context.Context, query string, args ...any) ([]model.Collision, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query collisions")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Collision{}
	for rows.Next() {
		c, err := scanCollision(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan collision")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate collisions")
}

func (s *SQLiteStore) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if !IsDistinctColumn(column) {
		return nil, eris.Errorf("sqlite: column %q is not queryable", column)
	}
	rows, err := s.db.QueryContext(ctx, distinctQuery(column))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: distinct %s", column)
	}
	defer rows.Close() //nolint:errcheck

	out := []string{}
	for rows.Next() {
		var (
			order any
			v     string
		)
		if err := rows.Scan(&order, &v); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan distinct %s", column)
		}
		out = append(out, v)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate distinct %s", column)
}

func (s *SQLiteStore) AvgCrashRate(ctx context.Context, q CrashRateQuery) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, avgCrashRateQuery(questionMark),
		q.Borough, q.TimeOfDay, q.Month, q.Day).Scan(&avg)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: avg crash rate")
	}
	return avg.Float64, avg.Valid, nil
}
