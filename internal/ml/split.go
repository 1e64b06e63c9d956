package ml

import (
	"math"
	"math/rand/v2"
)

// Split is a train/test partition of a feature matrix.
type Split struct {
	TrainX [][]float64
	TrainY []int
	TestX  [][]float64
	TestY  []int
}

// TrainTestSplit shuffles rows with a seeded generator and holds out
// ceil(testFrac*n) of them for testing.
func TrainTestSplit(x [][]float64, y []int, testFrac float64, seed uint64) Split {
	n := len(x)
	nTest := int(math.Ceil(testFrac * float64(n)))
	if nTest > n {
		nTest = n
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	var s Split
	for i, p := range perm {
		if i < nTest {
			s.TestX = append(s.TestX, x[p])
			s.TestY = append(s.TestY, y[p])
		} else {
			s.TrainX = append(s.TrainX, x[p])
			s.TrainY = append(s.TrainY, y[p])
		}
	}
	return s
}
