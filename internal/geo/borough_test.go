package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/collision-cli/internal/model"
)

func TestAssign(t *testing.T) {
	boroughs := Boroughs()
	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"midtown", 40.754, -73.984, "Manhattan"},
		{"overlap manhattan brooklyn goes to first", 40.71, -73.95, "Manhattan"},
		{"downtown brooklyn", 40.65, -73.95, "Brooklyn"},
		{"jamaica", 40.70, -73.80, "Queens"},
		{"fordham", 40.86, -73.89, "Bronx"},
		{"pelham bay", 40.86, -73.80, "Bronx"},
		{"st george", 40.60, -74.10, "Staten Island"},
		{"edge inclusive", 40.700, -74.019, "Manhattan"},
		{"corner inclusive", 40.477, -74.255, "Staten Island"},
		{"outside", 41.0, -75.0, model.Unknown},
		{"origin", 0, 0, model.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assign(tt.lat, tt.lon, boroughs))
		})
	}
}

func TestAssign_OrderMatters(t *testing.T) {
	boxes := []model.Borough{
		{Name: "A", LatMin: 0, LatMax: 2, LonMin: 0, LonMax: 2},
		{Name: "B", LatMin: 1, LatMax: 3, LonMin: 1, LonMax: 3},
	}
	assert.Equal(t, "A", Assign(1.5, 1.5, boxes))

	boxes[0], boxes[1] = boxes[1], boxes[0]
	assert.Equal(t, "B", Assign(1.5, 1.5, boxes))
}

func TestAssign_NoBoxes(t *testing.T) {
	assert.Equal(t, model.Unknown, Assign(40.7, -74.0, nil))
}

func TestAssignAll(t *testing.T) {
	in := []model.Collision{
		{Latitude: 40.754, Longitude: -73.984},
		{Latitude: 41.5, Longitude: -75.0},
	}

	out := AssignAll(in, Boroughs())

	assert.Equal(t, "Manhattan", out[0].Borough)
	assert.Equal(t, model.Unknown, out[1].Borough)
	assert.Empty(t, in[0].Borough)
}

func TestFind(t *testing.T) {
	b, ok := Find(Boroughs(), "Queens")
	assert.True(t, ok)
	assert.InDelta(t, 40.541, b.LatMin, 1e-9)

	_, ok = Find(Boroughs(), "Hoboken")
	assert.False(t, ok)
}
