// Package stats summarizes collision sets for the GlobalStatistics table and the
// dashboard's per-query statistics.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/collision-cli/internal/model"
)

// Compute summarizes records in one pass. Modes break ties by the lexicographically
// smallest value. An empty input yields zero counts and an empty distribution.
func Compute(records []model.Collision) model.GlobalStatistics {
	st := model.GlobalStatistics{
		Version:              uuid.NewString(),
		ComputedAt:           time.Now().UTC(),
		TotalCollisions:      len(records),
		SeverityDistribution: map[string]float64{},
	}
	if len(records) == 0 {
		return st
	}

	var (
		rateSum  float64
		borough  = counter{}
		timeOf   = counter{}
		severity = counter{}
		day      = counter{}
		factor   = counter{}
		vehicle  = counter{}
	)
	for i := range records {
		r := &records[i]
		rateSum += r.CrashRate
		borough[r.Borough]++
		timeOf[string(r.TimeOfDay)]++
		severity[string(r.SeverityCategory)]++
		day[r.DayOfWeek]++
		factor[r.ContributingFactorCategory]++
		vehicle[r.VehicleCategory]++
	}

	n := float64(len(records))
	st.AvgCrashRate = Round(rateSum/n, 2)
	st.MostFrequentBorough = borough.mode()
	st.PeakCollisionTime = timeOf.mode()
	st.MostFrequentDay = day.mode()
	st.MostCommonFactor = factor.mode()
	st.MostCommonVehicle = vehicle.mode()
	for k, c := range severity {
		st.SeverityDistribution[k] = Round(float64(c)*100/n, 1)
	}
	return st
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

type counter map[string]int

// mode returns the most frequent key; ties go to the smallest key.
func (c counter) mode() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestN := "", -1
	for _, k := range keys {
		if c[k] > bestN {
			best, bestN = k, c[k]
		}
	}
	return best
}
