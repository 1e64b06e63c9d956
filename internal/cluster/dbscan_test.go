package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// group returns n points within a few metres of (lat, lon).
func group(lat, lon float64, n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{Lat: lat + float64(i)*0.0001, Lon: lon - float64(i)*0.0001}
	}
	return pts
}

func TestDBSCAN_TwoGroupsAndNoise(t *testing.T) {
	var pts []Point
	pts = append(pts, group(40.70, -74.00, 5)...)
	pts = append(pts, group(42.50, -72.00, 4)...)
	pts = append(pts, Point{Lat: 47.0, Lon: -68.0})

	labels := DBSCAN(pts, Params{Eps: DefaultEps, MinSamples: 3})

	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 1, 1, 1, Noise}, labels)
}

func TestDBSCAN_FewerPointsThanMinSamples(t *testing.T) {
	labels := DBSCAN(group(40.7, -74.0, 5), DefaultParams())
	for _, l := range labels {
		assert.Equal(t, Noise, l)
	}
}

func TestDBSCAN_Empty(t *testing.T) {
	assert.Empty(t, DBSCAN(nil, DefaultParams()))
}

func TestDBSCAN_BorderPointJoinsFirstCluster(t *testing.T) {
	// On the equator eps of 0.001 rad is about 0.0573 degrees of longitude.
	p := Params{Eps: 0.001, MinSamples: 4}
	pts := []Point{
		{0, 0}, {0, 0}, {0, 0}, {0, 0.05},
		{0, 0.10}, // border point: reaches only 0.05 and 0.15
		{0, 0.15}, {0, 0.20}, {0, 0.20}, {0, 0.20},
	}

	labels := DBSCAN(pts, p)

	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 1, 1, 1}, labels)
}

func TestDBSCAN_NeighborhoodIsInclusiveOfSelf(t *testing.T) {
	pts := []Point{{40.7, -74.0}, {40.7, -74.0}}
	labels := DBSCAN(pts, Params{Eps: DefaultEps, MinSamples: 2})
	assert.Equal(t, []int{0, 0}, labels)
}

func TestNeighborhoods_MatchBruteForce(t *testing.T) {
	var pts []Point
	for i := 0; i < 40; i++ {
		pts = append(pts, Point{Lat: 40.5 + float64(i%7)*0.3, Lon: -74.2 + float64(i%5)*0.4})
	}
	eps := 0.01

	got := neighborhoods(pts, eps)

	for i := range pts {
		var want []int
		for j := range pts {
			if haversineRad(pts[i], pts[j]) <= eps {
				want = append(want, j)
			}
		}
		assert.ElementsMatch(t, want, got[i], "point %d", i)
	}
}
