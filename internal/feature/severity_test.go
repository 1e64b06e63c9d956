package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/collision-cli/internal/model"
)

func TestSeverityScore(t *testing.T) {
	tests := []struct {
		name   string
		counts model.Counts
		want   int
	}{
		{"empty", model.Counts{}, 0},
		{"injuries only", model.Counts{PersonsInjured: 2, CyclistInjured: 1}, 3},
		{"pedestrian death and motorist injuries", model.Counts{PedestriansKilled: 1, MotoristInjured: 2}, 7},
		{"mixed", model.Counts{PersonsKilled: 1, MotoristKilled: 1, PersonsInjured: 3}, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityScore(tt.counts))
		})
	}
}

func TestCategorize_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.SeverityCategory
	}{
		{0, model.SeverityLow},
		{4, model.SeverityLow},
		{5, model.SeverityMedium},
		{7, model.SeverityMedium},
		{10, model.SeverityMedium},
		{11, model.SeverityHigh},
		{50, model.SeverityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.score), "score %d", tt.score)
	}
}
