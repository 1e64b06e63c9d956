// Package cluster assigns density-based cluster labels to collision coordinates.
package cluster

import (
	"sort"

	"github.com/golang/geo/s2"
)

// Noise is the label of points that belong to no dense neighborhood.
const Noise = -1

// Defaults for the chunked clustering pass.
const (
	DefaultEps        = 0.01 // radians
	DefaultMinSamples = 10
	DefaultChunkSize  = 10000
)

// sweepSlack absorbs rounding when pruning by latitude difference.
const sweepSlack = 1e-12

// Point is a coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Params configures one DBSCAN pass. Eps is a great-circle angle in radians.
type Params struct {
	Eps        float64
	MinSamples int
}

// DefaultParams returns eps=0.01 rad and min_samples=10.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinSamples: DefaultMinSamples}
}

// DBSCAN labels points by density using haversine distance.
//
// A point is core when at least MinSamples points (itself included) lie within Eps.
// Clusters are numbered 0, 1, 2, ... in the order of their lowest-index core point;
// a border point reachable from several clusters keeps the first cluster's label.
func DBSCAN(points []Point, p Params) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}
	if len(points) == 0 {
		return labels
	}

	neighbors := neighborhoods(points, p.Eps)
	core := make([]bool, len(points))
	for i, nb := range neighbors {
		core[i] = len(nb) >= p.MinSamples
	}

	next := 0
	var stack []int
	for i := range points {
		if labels[i] != Noise || !core[i] {
			continue
		}
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if labels[j] != Noise {
				continue
			}
			labels[j] = next
			if !core[j] {
				continue
			}
			for _, k := range neighbors[j] {
				if labels[k] == Noise {
					stack = append(stack, k)
				}
			}
		}
		next++
	}
	return labels
}

// neighborhoods returns, for every point, the indices within eps (inclusive, self included).
// Points are swept in latitude order: two points further apart in latitude than eps
// cannot be within eps on the sphere.
func neighborhoods(points []Point, eps float64) [][]int {
	n := len(points)
	lls := make([]s2.LatLng, n)
	order := make([]int, n)
	for i, pt := range points {
		lls[i] = s2.LatLngFromDegrees(pt.Lat, pt.Lon)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return lls[order[a]].Lat < lls[order[b]].Lat
	})

	out := make([][]int, n)
	for i := range out {
		out[i] = []int{i}
	}
	for a := 0; a < n; a++ {
		i := order[a]
		for b := a + 1; b < n; b++ {
			j := order[b]
			if (lls[j].Lat - lls[i].Lat).Radians() > eps+sweepSlack {
				break
			}
			if lls[i].Distance(lls[j]).Radians() <= eps {
				out[i] = append(out[i], j)
				out[j] = append(out[j], i)
			}
		}
	}
	return out
}
