// Package ingest cleans the raw collision export and reads and writes the
// intermediate CSV artifacts of the pipeline.
package ingest

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/fetcher"
	"github.com/sells-group/collision-cli/internal/model"
)

var countColumns = []string{
	"number_of_persons_injured",
	"number_of_persons_killed",
	"number_of_pedestrians_injured",
	"number_of_pedestrians_killed",
	"number_of_cyclist_injured",
	"number_of_cyclist_killed",
	"number_of_motorist_injured",
	"number_of_motorist_killed",
}

var factorColumns = []string{
	"contributing_factor_vehicle_1",
	"contributing_factor_vehicle_2",
	"contributing_factor_vehicle_3",
	"contributing_factor_vehicle_4",
	"contributing_factor_vehicle_5",
}

var vehicleColumns = []string{
	"vehicle_type_code_1",
	"vehicle_type_code_2",
	"vehicle_type_code_3",
	"vehicle_type_code_4",
	"vehicle_type_code_5",
}

var (
	dateLayouts = []string{"01/02/2006", "1/2/2006", "2006-01-02", "2006-01-02T15:04:05.000", "2006-01-02T15:04:05"}
	timeLayouts = []string{"15:04", "15:04:05"}
)

// Report summarizes one cleaning pass.
type Report struct {
	Rows          int // data rows read
	Duplicates    int
	MissingCoords int
	MissingCounts int
	BadTimestamps int // kept with a zero timestamp
	Kept          int
}

// NormalizeHeader trims, lower-cases and replaces spaces with underscores.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

type columns map[string]int

func indexHeader(header []string) columns {
	idx := make(columns, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

// get returns the trimmed field for a column, or "" when the column or field is absent.
func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Clean reads a raw collision CSV and applies the cleaning rules: exact duplicate rows
// are dropped, rows without coordinates are dropped, rows with none of the eight
// counts are dropped and partial counts zero-filled, missing factor and vehicle codes
// become "Unknown", and crash date and time are combined into one timestamp.
func Clean(ctx context.Context, r io.Reader) ([]model.CleanCollision, Report, error) {
	log := zap.L().With(zap.String("component", "ingest"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})

	var (
		rep  Report
		idx  columns
		out  []model.CleanCollision
		seen = make(map[string]struct{})
	)
	for row := range rows {
		if idx == nil {
			select {
			case h := <-headerCh:
				idx = indexHeader(h)
			default:
				return nil, rep, eris.New("ingest: missing header row")
			}
			if _, ok := idx["latitude"]; !ok {
				return nil, rep, eris.New("ingest: raw file has no latitude column")
			}
			if _, ok := idx["longitude"]; !ok {
				return nil, rep, eris.New("ingest: raw file has no longitude column")
			}
		}
		rep.Rows++

		key := strings.Join(row, "\x1f")
		if _, dup := seen[key]; dup {
			rep.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		rec, ok := cleanRow(idx, row, &rep)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	if err := <-errs; err != nil {
		return nil, rep, eris.Wrap(err, "ingest: read raw csv")
	}

	rep.Kept = len(out)
	log.Info("cleaned raw collisions",
		zap.Int("rows", rep.Rows),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("missing_coords", rep.MissingCoords),
		zap.Int("missing_counts", rep.MissingCounts),
		zap.Int("bad_timestamps", rep.BadTimestamps),
		zap.Int("kept", rep.Kept),
	)
	return out, rep, nil
}

func cleanRow(idx columns, row []string, rep *Report) (model.CleanCollision, bool) {
	var rec model.CleanCollision

	lat, latOK := parseFloat(idx.get(row, "latitude"))
	lon, lonOK := parseFloat(idx.get(row, "longitude"))
	if !latOK || !lonOK {
		rep.MissingCoords++
		return rec, false
	}
	rec.Latitude, rec.Longitude = lat, lon

	counts := [8]int{}
	present := 0
	for i, col := range countColumns {
		if v, ok := parseCount(idx.get(row, col)); ok {
			counts[i] = v
			present++
		}
	}
	if present == 0 {
		rep.MissingCounts++
		return rec, false
	}
	rec.Counts = model.Counts{
		PersonsInjured:     counts[0],
		PersonsKilled:      counts[1],
		PedestriansInjured: counts[2],
		PedestriansKilled:  counts[3],
		CyclistInjured:     counts[4],
		CyclistKilled:      counts[5],
		MotoristInjured:    counts[6],
		MotoristKilled:     counts[7],
	}

	factors := [5]*string{
		&rec.ContributingFactor1, &rec.ContributingFactor2, &rec.ContributingFactor3,
		&rec.ContributingFactor4, &rec.ContributingFactor5,
	}
	for i, col := range factorColumns {
		*factors[i] = orUnknown(idx.get(row, col))
	}
	vehicles := [5]*string{
		&rec.VehicleType1, &rec.VehicleType2, &rec.VehicleType3,
		&rec.VehicleType4, &rec.VehicleType5,
	}
	for i, col := range vehicleColumns {
		*vehicles[i] = orUnknown(idx.get(row, col))
	}

	ts, ok := ParseCrashDateTime(idx.get(row, "crash_date"), idx.get(row, "crash_time"))
	if !ok {
		rep.BadTimestamps++
	}
	rec.CrashDateTime = ts

	return rec, true
}

// ParseCrashDateTime combines a crash date and time of day. Either part failing to
// parse yields the zero timestamp and false.
func ParseCrashDateTime(date, clock string) (model.Timestamp, bool) {
	d, ok := parseFirst(dateLayouts, date)
	if !ok {
		return model.Timestamp{}, false
	}
	c, ok := parseFirst(timeLayouts, clock)
	if !ok {
		return model.Timestamp{}, false
	}
	return model.Timestamp{Time: time.Date(d.Year(), d.Month(), d.Day(),
		c.Hour(), c.Minute(), c.Second(), 0, time.UTC)}, true
}

func parseFirst(layouts []string, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseCount accepts "2" and "2.0"; negative and unparseable values count as missing.
func parseCount(s string) (int, bool) {
	v, ok := parseFloat(s)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}

func orUnknown(s string) string {
	if s == "" {
		return model.Unknown
	}
	return s
}
