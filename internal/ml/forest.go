package ml

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// leaf marks a node without a split.
const leaf = -1

// ForestParams configures a RandomForest.
type ForestParams struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int  // features tried per split; 0 means sqrt(n_features)
	Balanced        bool // weight classes by n / (k * n_c)
	Seed            uint64
	Workers         int
}

// DefaultForestParams returns 100 trees of depth 12 with balanced class weights.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:     100,
		MaxDepth:        12,
		MinSamplesSplit: 2,
		Balanced:        true,
		Seed:            42,
		Workers:         4,
	}
}

// Node is one node of a flattened tree. Leaves carry class probabilities.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Probs     []float64
}

// Tree is a Gini classification tree stored as a node slice rooted at 0.
type Tree struct {
	Nodes []Node
}

// RandomForest is a bagged ensemble of classification trees.
type RandomForest struct {
	Params       ForestParams
	NFeatures    int
	NClasses     int
	ClassWeights []float64
	Trees        []Tree
}

// NewRandomForest returns an untrained forest.
func NewRandomForest(p ForestParams) *RandomForest {
	if p.NEstimators <= 0 {
		p.NEstimators = 100
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	return &RandomForest{Params: p}
}

// Fit grows every tree on its own bootstrap sample. Tree t draws from a generator
// seeded with (Seed, t), so the result does not depend on Workers.
func (f *RandomForest) Fit(ctx context.Context, x [][]float64, y []int, nClasses int) error {
	if len(x) == 0 {
		return eris.New("ml: fit forest on empty input")
	}
	if len(x) != len(y) {
		return eris.Errorf("ml: fit forest with %d rows and %d labels", len(x), len(y))
	}
	f.NFeatures = len(x[0])
	f.NClasses = nClasses
	f.ClassWeights = classWeights(y, nClasses, f.Params.Balanced)

	mtry := f.Params.MaxFeatures
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(f.NFeatures)))
	}
	mtry = max(1, min(mtry, f.NFeatures))

	workers := max(1, f.Params.Workers)
	f.Trees = make([]Tree, f.Params.NEstimators)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for t := range f.Trees {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrapf(err, "ml: grow tree %d", t)
			}
			rng := rand.New(rand.NewPCG(f.Params.Seed, uint64(t)))
			idx := make([]int, len(x))
			for i := range idx {
				idx[i] = rng.IntN(len(x))
			}
			b := &treeBuilder{
				x: x, y: y, w: f.ClassWeights, k: nClasses, mtry: mtry,
				maxDepth: f.Params.MaxDepth, minSplit: f.Params.MinSamplesSplit, rng: rng,
			}
			b.grow(idx, 0)
			f.Trees[t] = Tree{Nodes: b.nodes}
			return nil
		})
	}
	return g.Wait()
}

// PredictProba averages the leaf distributions of every tree.
func (f *RandomForest) PredictProba(row []float64) []float64 {
	out := make([]float64, f.NClasses)
	if len(f.Trees) == 0 {
		return out
	}
	for i := range f.Trees {
		for c, p := range f.Trees[i].proba(row) {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out
}

// Predict returns the most probable class, the lowest index on ties.
func (f *RandomForest) Predict(row []float64) int {
	return argmax(f.PredictProba(row))
}

func (t *Tree) proba(row []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature == leaf {
			return n.Probs
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x        [][]float64
	y        []int
	w        []float64
	k        int
	mtry     int
	maxDepth int
	minSplit int
	rng      *rand.Rand
	nodes    []Node
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := b.counts(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: leaf, Probs: normalize(counts)})

	if (b.maxDepth > 0 && depth >= b.maxDepth) || len(idx) < b.minSplit || pure(counts) {
		return id
	}
	feat, thr, ok := b.bestSplit(idx, counts)
	if !ok {
		return id
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = Node{Feature: feat, Threshold: thr, Left: l, Right: r}
	return id
}

// bestSplit scans mtry random features for the threshold minimizing weighted Gini.
// Thresholds are midpoints between consecutive distinct values.
func (b *treeBuilder) bestSplit(idx []int, parent []float64) (int, float64, bool) {
	total := sum(parent)
	best := gini(parent) * total
	bestFeat, bestThr, found := 0, 0.0, false

	sorted := make([]int, len(idx))
	left := make([]float64, b.k)
	right := make([]float64, b.k)
	for _, f := range b.rng.Perm(len(b.x[0]))[:b.mtry] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })
		clear(left)
		copy(right, parent)
		var wl float64
		for j := 0; j < len(sorted)-1; j++ {
			i := sorted[j]
			cw := b.w[b.y[i]]
			left[b.y[i]] += cw
			right[b.y[i]] -= cw
			wl += cw
			lo, hi := b.x[i][f], b.x[sorted[j+1]][f]
			if lo == hi {
				continue
			}
			score := gini(left)*wl + gini(right)*(total-wl)
			if score < best-1e-12 {
				best, bestFeat, bestThr, found = score, f, lo+(hi-lo)/2, true
			}
		}
	}
	return bestFeat, bestThr, found
}

func (b *treeBuilder) counts(idx []int) []float64 {
	out := make([]float64, b.k)
	for _, i := range idx {
		out[b.y[i]] += b.w[b.y[i]]
	}
	return out
}

func classWeights(y []int, k int, balanced bool) []float64 {
	w := make([]float64, k)
	if !balanced {
		for c := range w {
			w[c] = 1
		}
		return w
	}
	n := make([]int, k)
	for _, c := range y {
		n[c]++
	}
	for c := range w {
		if n[c] > 0 {
			w[c] = float64(len(y)) / float64(k*n[c])
		}
	}
	return w
}

func gini(counts []float64) float64 {
	total := sum(counts)
	if total <= 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g
}

func pure(counts []float64) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func normalize(counts []float64) []float64 {
	out := make([]float64, len(counts))
	total := sum(counts)
	if total <= 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
