package feature

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/collision-cli/internal/model"
)

const gridPrecision = 1000.0

// roundGrid rounds to 3 decimal places, ties to even, so grid keys agree with
// the published CSVs.
func roundGrid(v float64) float64 {
	return math.RoundToEven(v*gridPrecision) / gridPrecision
}

// formatCoord prints the shortest representation, keeping a trailing ".0" on
// whole numbers so keys read the same as in the published CSVs.
func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// LocationGrid returns the ~111 m grid-cell key for a coordinate, e.g. "40.713, -74.006".
func LocationGrid(lat, lon float64) string {
	return formatCoord(roundGrid(lat)) + ", " + formatCoord(roundGrid(lon))
}

// CrashRates returns, per grid key, the mean severity score of every record in that cell.
// It needs the complete record set; results must not be computed from a partial stream.
func CrashRates(records []model.Collision) map[string]float64 {
	type acc struct {
		sum   int
		count int
	}
	cells := make(map[string]*acc)
	for i := range records {
		a, ok := cells[records[i].LocationGrid]
		if !ok {
			a = &acc{}
			cells[records[i].LocationGrid] = a
		}
		a.sum += records[i].SeverityScore
		a.count++
	}
	rates := make(map[string]float64, len(cells))
	for k, a := range cells {
		rates[k] = float64(a.sum) / float64(a.count)
	}
	return rates
}

// ApplyCrashRates writes each record's cell rate back onto it.
func ApplyCrashRates(records []model.Collision) {
	rates := CrashRates(records)
	for i := range records {
		records[i].CrashRate = rates[records[i].LocationGrid]
	}
}
