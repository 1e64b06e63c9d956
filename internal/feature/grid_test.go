package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/collision-cli/internal/model"
)

func TestLocationGrid(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{40.71284, -74.00597, "40.713, -74.006"},
		{40.7, -74.0, "40.7, -74.0"},
		{40.0004, -73.9996, "40.0, -74.0"},
		// exact binary ties: 40062.5 and -73937.5 before rounding
		{40.0625, -73.9375, "40.062, -73.938"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LocationGrid(tt.lat, tt.lon))
	}
}

func TestCrashRates(t *testing.T) {
	records := []model.Collision{
		{LocationGrid: "40.7, -74.0", SeverityScore: 2},
		{LocationGrid: "40.7, -74.0", SeverityScore: 7},
		{LocationGrid: "40.8, -73.9", SeverityScore: 0},
	}

	rates := CrashRates(records)
	assert.InDelta(t, 4.5, rates["40.7, -74.0"], 1e-9)
	assert.InDelta(t, 0.0, rates["40.8, -73.9"], 1e-9)

	ApplyCrashRates(records)
	assert.InDelta(t, 4.5, records[0].CrashRate, 1e-9)
	assert.InDelta(t, 4.5, records[1].CrashRate, 1e-9)
	assert.InDelta(t, 0.0, records[2].CrashRate, 1e-9)
}
