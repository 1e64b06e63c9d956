// Package export writes collision query results to spreadsheets.
package export

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/collision-cli/internal/model"
	"github.com/sells-group/collision-cli/internal/stats"
)

// Sheet names.
const (
	SheetCollisions = "collisions"
	SheetSummary    = "summary"
)

var collisionHeader = []string{
	"latitude", "longitude", "borough", "severity_score", "severity_category",
	"crash_rate", "day_of_week", "hour_of_day", "time_of_day", "month",
	"vehicle_category", "contributing_factor_category", "location_grid", "collision_cluster",
}

// Workbook builds a two-sheet workbook: the persisted columns of every row, then
// the statistics of the rows followed by the selection label/value pairs.
func Workbook(rows []model.Collision, selection [][2]string) (*xlsx.File, error) {
	f := xlsx.NewFile()

	data, err := f.AddSheet(SheetCollisions)
	if err != nil {
		return nil, eris.Wrap(err, "export: add collisions sheet")
	}
	addRow(data, collisionHeader...)
	for _, r := range model.Rows(rows) {
		writeRow(data.AddRow(), r)
	}

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	addRow(summary, "metric", "value")
	for _, p := range summaryPairs(rows) {
		addRow(summary, p[0], p[1])
	}
	for _, p := range selection {
		addRow(summary, p[0], p[1])
	}
	return f, nil
}

// Write saves the workbook to path, creating its directory.
func Write(path string, rows []model.Collision, selection [][2]string) error {
	f, err := Workbook(rows, selection)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create %s", dir)
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func summaryPairs(rows []model.Collision) [][2]string {
	st := stats.Compute(rows)
	out := [][2]string{{"Filtered Collisions", strconv.Itoa(st.TotalCollisions)}}
	if len(rows) == 0 {
		return out
	}
	out = append(out,
		[2]string{"Average Crash Rate", formatFloat(st.AvgCrashRate)},
		[2]string{"Peak Collision Time", st.PeakCollisionTime},
	)
	cats := make([]string, 0, len(st.SeverityDistribution))
	for c := range st.SeverityDistribution {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		out = append(out, [2]string{"Severity " + c + " (%)", formatFloat(st.SeverityDistribution[c])})
	}
	return out
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func writeRow(row *xlsx.Row, c model.CollisionRow) {
	row.AddCell().SetFloat(c.Latitude)
	row.AddCell().SetFloat(c.Longitude)
	row.AddCell().SetString(c.Borough)
	row.AddCell().SetInt(c.SeverityScore)
	row.AddCell().SetString(string(c.SeverityCategory))
	row.AddCell().SetFloat(c.CrashRate)
	row.AddCell().SetString(c.DayOfWeek)
	optionalInt(row.AddCell(), c.HourOfDay)
	row.AddCell().SetString(string(c.TimeOfDay))
	optionalInt(row.AddCell(), c.Month)
	row.AddCell().SetString(c.VehicleCategory)
	row.AddCell().SetString(c.ContributingFactorCategory)
	row.AddCell().SetString(c.LocationGrid)
	row.AddCell().SetInt(c.CollisionCluster)
}

func optionalInt(cell *xlsx.Cell, v *int) {
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetInt(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
