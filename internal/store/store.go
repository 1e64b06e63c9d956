// Package store persists boroughs, enriched collisions and global statistics.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/collision-cli/internal/model"
)

// Store defines the persistence interface for the collision pipeline.
type Store interface {
	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error

	// Rebuild. Each call replaces its table in full.
	ReplaceBoroughs(ctx context.Context, boroughs []model.Borough) error
	ReplaceCollisions(ctx context.Context, records []model.Collision) (int64, error)
	SaveGlobalStatistics(ctx context.Context, st model.GlobalStatistics) error

	// Reads
	GlobalStatistics(ctx context.Context) (*model.GlobalStatistics, error)
	Boroughs(ctx context.Context) ([]model.Borough, error)
	QueryCollisions(ctx context.Context, f CollisionFilter) ([]model.Collision, error)
	AllCollisions(ctx context.Context) ([]model.Collision, error)
	DistinctValues(ctx context.Context, column string) ([]string, error)
	AvgCrashRate(ctx context.Context, q CrashRateQuery) (float64, bool, error)
}

// ErrNoStatistics is returned when the statistics table has no row yet.
var ErrNoStatistics = eris.New("store: global statistics not computed")

// CollisionFilter selects collisions. A nil slice places no constraint on its column;
// a non-nil empty slice matches nothing. TimesOfDay and the hour range are
// alternatives: when TimesOfDay is non-nil the hour range is ignored.
type CollisionFilter struct {
	Boroughs   []string `json:"boroughs,omitempty"`
	Months     []int    `json:"months,omitempty"`
	Days       []string `json:"days,omitempty"`
	Factors    []string `json:"factors,omitempty"`
	Vehicles   []string `json:"vehicles,omitempty"`
	TimesOfDay []string `json:"times_of_day,omitempty"`
	HourMin    *int     `json:"hour_min,omitempty"`
	HourMax    *int     `json:"hour_max,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// CrashRateQuery identifies the cell averaged for a prediction input.
type CrashRateQuery struct {
	Borough   string
	TimeOfDay string
	Month     int
	Day       string
}

// collisionColumns are the persisted enriched columns, in insert order.
var collisionColumns = []string{
	"severity_score",
	"severity_category",
	"crash_rate",
	"day_of_week",
	"time_of_day",
	"hour_of_day",
	"month",
	"vehicle_category",
	"contributing_factor_category",
	"location_grid",
	"collision_cluster",
	"latitude",
	"longitude",
	"borough",
}

var boroughColumns = []string{"borough_name", "position", "lat_min", "lat_max", "lon_min", "lon_max"}

// distinctColumns are the columns DistinctValues may read.
var distinctColumns = map[string]bool{
	"borough":                      true,
	"day_of_week":                  true,
	"time_of_day":                  true,
	"month":                        true,
	"vehicle_category":             true,
	"contributing_factor_category": true,
	"severity_category":            true,
}

// IsDistinctColumn reports whether DistinctValues accepts column.
func IsDistinctColumn(column string) bool {
	return distinctColumns[column]
}

func collisionValues(c *model.Collision) []any {
	return []any{
		c.SeverityScore,
		string(c.SeverityCategory),
		c.CrashRate,
		c.DayOfWeek,
		string(c.TimeOfDay),
		c.HourOfDay,
		c.Month,
		c.VehicleCategory,
		c.ContributingFactorCategory,
		c.LocationGrid,
		c.CollisionCluster,
		c.Latitude,
		c.Longitude,
		c.Borough,
	}
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollision(r rowScanner) (model.Collision, error) {
	var (
		c        model.Collision
		severity string
		tod      string
		hour     *int64
		month    *int64
	)
	err := r.Scan(
		&c.SeverityScore,
		&severity,
		&c.CrashRate,
		&c.DayOfWeek,
		&tod,
		&hour,
		&month,
		&c.VehicleCategory,
		&c.ContributingFactorCategory,
		&c.LocationGrid,
		&c.CollisionCluster,
		&c.Latitude,
		&c.Longitude,
		&c.Borough,
	)
	if err != nil {
		return c, err
	}
	c.SeverityCategory = model.SeverityCategory(severity)
	c.TimeOfDay = model.TimeOfDay(tod)
	if hour != nil {
		h := int(*hour)
		c.HourOfDay = &h
	}
	if month != nil {
		m := int(*month)
		c.Month = &m
	}
	return c, nil
}

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func questionMark(int) string  { return "?" }
func dollar(n int) string      { return fmt.Sprintf("$%d", n) }
func selectCollisions() string { return "SELECT " + strings.Join(collisionColumns, ", ") + " FROM collisions" }

// buildQuery renders the filter as a SELECT over collisions. ok is false when the
// filter can match no rows, in which case no query should be run.
func buildQuery(f CollisionFilter, ph placeholder) (query string, args []any, ok bool) {
	var conds []string
	in := func(col string, vals []any) bool {
		if vals == nil {
			return true
		}
		if len(vals) == 0 {
			return false
		}
		marks := make([]string, len(vals))
		for i, v := range vals {
			args = append(args, v)
			marks[i] = ph(len(args))
		}
		conds = append(conds, col+" IN ("+strings.Join(marks, ", ")+")")
		return true
	}

	if !in("borough", anyStrings(f.Boroughs)) ||
		!in("month", anyInts(f.Months)) ||
		!in("day_of_week", anyStrings(f.Days)) ||
		!in("contributing_factor_category", anyStrings(f.Factors)) ||
		!in("vehicle_category", anyStrings(f.Vehicles)) {
		return "", nil, false
	}

	switch {
	case f.TimesOfDay != nil:
		if !in("time_of_day", anyStrings(f.TimesOfDay)) {
			return "", nil, false
		}
	case f.HourMin != nil || f.HourMax != nil:
		lo, hi := 0, 24
		if f.HourMin != nil {
			lo = *f.HourMin
		}
		if f.HourMax != nil {
			hi = *f.HourMax
		}
		if lo > hi {
			return "", nil, false
		}
		args = append(args, lo, hi)
		conds = append(conds, fmt.Sprintf("hour_of_day BETWEEN %s AND %s", ph(len(args)-1), ph(len(args))))
	}

	var b strings.Builder
	b.WriteString(selectCollisions())
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY collision_id")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT " + ph(len(args)))
	}
	return b.String(), args, true
}

func anyStrings(vals []string) []any {
	if vals == nil {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func anyInts(vals []int) []any {
	if vals == nil {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func avgCrashRateQuery(ph placeholder) string {
	return fmt.Sprintf(
		"SELECT AVG(crash_rate) FROM collisions WHERE borough = %s AND time_of_day = %s AND month = %s AND day_of_week = %s",
		ph(1), ph(2), ph(3), ph(4),
	)
}

// distinctQuery selects the column for ordering and its text form for the result,
// so integer columns sort numerically.
func distinctQuery(column string) string {
	return fmt.Sprintf(
		"SELECT DISTINCT %[1]s, CAST(%[1]s AS TEXT) FROM collisions WHERE %[1]s IS NOT NULL ORDER BY %[1]s",
		column,
	)
}
