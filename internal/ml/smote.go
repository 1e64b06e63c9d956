package ml

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// DefaultNeighbors is the k of the SMOTE nearest-neighbour search.
const DefaultNeighbors = 5

// SMOTEOptions configures Oversample.
type SMOTEOptions struct {
	Neighbors int
	Seed      uint64
	Workers   int
}

// Oversample balances every class to the majority count by interpolating new
// samples between a class member and one of its k nearest same-class neighbours.
// Original samples come first, unchanged and in order; synthetic samples follow,
// grouped by class index. A class with a single member is duplicated.
func Oversample(ctx context.Context, x [][]float64, y []int, nClasses int, opts SMOTEOptions) ([][]float64, []int, error) {
	if len(x) != len(y) {
		return nil, nil, eris.Errorf("ml: oversample %d rows with %d labels", len(x), len(y))
	}
	k := opts.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	members := make([][]int, nClasses)
	for i, c := range y {
		if c < 0 || c >= nClasses {
			return nil, nil, eris.Errorf("ml: label %d out of range", c)
		}
		members[c] = append(members[c], i)
	}
	target := 0
	for _, m := range members {
		if len(m) > target {
			target = len(m)
		}
	}

	outX := append([][]float64(nil), x...)
	outY := append([]int(nil), y...)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	for c, m := range members {
		need := target - len(m)
		if need <= 0 || len(m) == 0 {
			continue
		}
		bases := make([]int, need)
		for i := range bases {
			bases[i] = m[rng.IntN(len(m))]
		}
		gaps := make([]float64, need)
		picks := make([]int, need)
		for i := range gaps {
			gaps[i] = rng.Float64()
			picks[i] = rng.IntN(1 << 30)
		}

		neighbors, err := nearestWithin(ctx, x, m, uniqueInts(bases), k, workers)
		if err != nil {
			return nil, nil, err
		}
		for i, b := range bases {
			nb := neighbors[b]
			sample := append([]float64(nil), x[b]...)
			if len(nb) > 0 {
				other := x[nb[picks[i]%len(nb)]]
				for j := range sample {
					sample[j] += gaps[i] * (other[j] - sample[j])
				}
			}
			outX = append(outX, sample)
			outY = append(outY, c)
		}
	}
	return outX, outY, nil
}

// nearestWithin returns, for each query row, the k nearest other rows among members
// by squared Euclidean distance. Ties resolve to the lower row index.
func nearestWithin(ctx context.Context, x [][]float64, members, queries []int, k, workers int) (map[int][]int, error) {
	if k > len(members)-1 {
		k = len(members) - 1
	}
	results := make([][]int, len(queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for qi, q := range queries {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrap(err, "ml: nearest neighbours")
			}
			type cand struct {
				idx  int
				dist float64
			}
			cands := make([]cand, 0, len(members))
			for _, m := range members {
				if m == q {
					continue
				}
				cands = append(cands, cand{m, sqDist(x[q], x[m])})
			}
			sort.Slice(cands, func(a, b int) bool {
				if cands[a].dist != cands[b].dist {
					return cands[a].dist < cands[b].dist
				}
				return cands[a].idx < cands[b].idx
			})
			out := make([]int, 0, k)
			for _, c := range cands[:k] {
				out = append(out, c.idx)
			}
			results[qi] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[int][]int, len(queries))
	for qi, q := range queries {
		out[q] = results[qi]
	}
	return out, nil
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func uniqueInts(v []int) []int {
	seen := make(map[int]struct{}, len(v))
	var out []int
	for _, x := range v {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	return out
}
