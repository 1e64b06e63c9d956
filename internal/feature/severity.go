// Package feature derives the enriched collision attributes: severity, temporal
// buckets, factor and vehicle categories, location grid, crash rate, and class balance.
package feature

import "github.com/sells-group/collision-cli/internal/model"

// Severity thresholds. Scores at or below lowMax are Low, at or below mediumMax are Medium.
const (
	deathWeight = 5
	lowMax      = 4
	mediumMax   = 10
)

// SeverityScore weights deaths by 5 and injuries by 1.
// Counts are never negative after cleaning, so the score is never negative.
func SeverityScore(c model.Counts) int {
	return deathWeight*c.TotalDeaths() + c.TotalInjuries()
}

// Categorize maps a severity score to its category.
func Categorize(score int) model.SeverityCategory {
	switch {
	case score <= lowMax:
		return model.SeverityLow
	case score <= mediumMax:
		return model.SeverityMedium
	default:
		return model.SeverityHigh
	}
}
