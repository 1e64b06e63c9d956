// Package geo assigns collisions to NYC boroughs by bounding box.
package geo

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/collision-cli/internal/model"
)

// Boroughs returns the fixed borough boxes in match order.
// The boxes overlap; the first containing box wins.
func Boroughs() []model.Borough {
	return []model.Borough{
		{Name: "Manhattan", LatMin: 40.700, LatMax: 40.882, LonMin: -74.019, LonMax: -73.907},
		{Name: "Brooklyn", LatMin: 40.570, LatMax: 40.739, LonMin: -74.041, LonMax: -73.855},
		{Name: "Queens", LatMin: 40.541, LatMax: 40.800, LonMin: -73.962, LonMax: -73.700},
		{Name: "Bronx", LatMin: 40.785, LatMax: 40.910, LonMin: -73.933, LonMax: -73.765},
		{Name: "Staten Island", LatMin: 40.477, LatMax: 40.648, LonMin: -74.255, LonMax: -74.051},
	}
}

// Assigner matches coordinates against an ordered list of borough boxes.
type Assigner struct {
	names  []string
	bounds []*geom.Bounds
}

// NewAssigner builds an Assigner. Boxes keep their slice order.
func NewAssigner(boroughs []model.Borough) *Assigner {
	a := &Assigner{
		names:  make([]string, len(boroughs)),
		bounds: make([]*geom.Bounds, len(boroughs)),
	}
	for i, b := range boroughs {
		a.names[i] = b.Name
		a.bounds[i] = geom.NewBounds(geom.XY).Set(b.LonMin, b.LatMin, b.LonMax, b.LatMax)
	}
	return a
}

// Assign returns the first borough whose box contains the point, edges included,
// or "Unknown".
func (a *Assigner) Assign(lat, lon float64) string {
	pt := geom.Coord{lon, lat}
	for i, b := range a.bounds {
		if b.OverlapsPoint(geom.XY, pt) {
			return a.names[i]
		}
	}
	return model.Unknown
}

// Assign is a convenience wrapper over a one-off Assigner.
func Assign(lat, lon float64, boroughs []model.Borough) string {
	return NewAssigner(boroughs).Assign(lat, lon)
}

// AssignAll returns a copy of records with Borough set on every record.
func AssignAll(records []model.Collision, boroughs []model.Borough) []model.Collision {
	a := NewAssigner(boroughs)
	out := make([]model.Collision, len(records))
	for i := range records {
		out[i] = records[i]
		out[i].Borough = a.Assign(records[i].Latitude, records[i].Longitude)
	}
	return out
}

// Find returns the named borough box.
func Find(boroughs []model.Borough, name string) (model.Borough, bool) {
	for _, b := range boroughs {
		if b.Name == name {
			return b, true
		}
	}
	return model.Borough{}, false
}
