package ml

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// minHessian keeps leaf weights finite once a class probability saturates.
const minHessian = 1e-16

// BoostParams configures GradientBoosting.
type BoostParams struct {
	Rounds         int
	MaxDepth       int
	LearningRate   float64
	Lambda         float64 // L2 penalty on leaf weights
	MinChildWeight float64 // minimum hessian sum on each side of a split
	Workers        int     // class trees grown concurrently within a round
}

// DefaultBoostParams returns 100 rounds of depth-6 trees with eta 0.3 and lambda 1.
func DefaultBoostParams() BoostParams {
	return BoostParams{
		Rounds:         100,
		MaxDepth:       6,
		LearningRate:   0.3,
		Lambda:         1,
		MinChildWeight: 1,
		Workers:        4,
	}
}

// RegNode is one node of a flattened regression tree. Leaves carry the output weight.
type RegNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// RegTree is a regression tree stored as a node slice rooted at 0.
type RegTree struct {
	Nodes []RegNode
}

func (t *RegTree) value(row []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// GradientBoosting is a multiclass boosted-tree ensemble on the softmax loss.
// Every round fits one regression tree per class to the gradient and hessian of
// the current scores. Trees is indexed [round][class].
type GradientBoosting struct {
	Params    BoostParams
	NFeatures int
	NClasses  int
	Trees     [][]RegTree
}

// NewGradientBoosting returns an untrained ensemble.
func NewGradientBoosting(p BoostParams) *GradientBoosting {
	d := DefaultBoostParams()
	if p.Rounds <= 0 {
		p.Rounds = d.Rounds
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.Lambda < 0 {
		p.Lambda = 0
	}
	return &GradientBoosting{Params: p}
}

// Fit runs Params.Rounds boosting rounds. Class trees of one round only read the
// scores of the previous round, so the result does not depend on Workers.
func (m *GradientBoosting) Fit(ctx context.Context, x [][]float64, y []int, nClasses int) error {
	if len(x) == 0 {
		return eris.New("ml: fit gradient boosting on empty input")
	}
	if len(x) != len(y) {
		return eris.Errorf("ml: fit gradient boosting with %d rows and %d labels", len(x), len(y))
	}
	m.NFeatures = len(x[0])
	m.NClasses = nClasses
	m.Trees = make([][]RegTree, 0, m.Params.Rounds)

	n := len(x)
	scores := make([][]float64, n)
	probs := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, nClasses)
		probs[i] = make([]float64, nClasses)
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	workers := max(1, m.Params.Workers)
	for r := 0; r < m.Params.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "ml: boosting round %d", r)
		}
		for i := range scores {
			copy(probs[i], scores[i])
			softmax(probs[i])
		}

		round := make([]RegTree, nClasses)
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for c := range round {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return eris.Wrapf(err, "ml: boosting round %d class %d", r, c)
				}
				b := &regBuilder{
					x:        x,
					g:        make([]float64, n),
					h:        make([]float64, n),
					maxDepth: m.Params.MaxDepth,
					lambda:   m.Params.Lambda,
					minChild: m.Params.MinChildWeight,
				}
				for i := range b.g {
					p := probs[i][c]
					if y[i] == c {
						b.g[i] = p - 1
					} else {
						b.g[i] = p
					}
					b.h[i] = math.Max(2*p*(1-p), minHessian)
				}
				b.grow(all, 0)
				for j := range b.nodes {
					b.nodes[j].Value *= m.Params.LearningRate
				}
				round[c] = RegTree{Nodes: b.nodes}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i := range scores {
			for c := range round {
				scores[i][c] += round[c].value(x[i])
			}
		}
		m.Trees = append(m.Trees, round)
	}
	return nil
}

// PredictProba returns the softmax of the summed class scores.
func (m *GradientBoosting) PredictProba(row []float64) []float64 {
	out := make([]float64, m.NClasses)
	for r := range m.Trees {
		for c := range m.Trees[r] {
			out[c] += m.Trees[r][c].value(row)
		}
	}
	softmax(out)
	return out
}

// Predict returns the most probable class, the lowest index on ties.
func (m *GradientBoosting) Predict(row []float64) int {
	return argmax(m.PredictProba(row))
}

type regBuilder struct {
	x        [][]float64
	g        []float64
	h        []float64
	maxDepth int
	lambda   float64
	minChild float64
	nodes    []RegNode
}

func (b *regBuilder) grow(idx []int, depth int) int {
	var gs, hs float64
	for _, i := range idx {
		gs += b.g[i]
		hs += b.h[i]
	}
	id := len(b.nodes)
	b.nodes = append(b.nodes, RegNode{Feature: leaf, Value: -gs / (hs + b.lambda)})

	if depth >= b.maxDepth || len(idx) < 2 {
		return id
	}
	feat, thr, ok := b.bestSplit(idx, gs, hs)
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
	b.nodes[id] = RegNode{Feature: feat, Threshold: thr, Left: l, Right: r}
	return id
}

// bestSplit scans every feature for the threshold with the largest positive
// structure-score gain. Thresholds are midpoints between consecutive distinct values.
func (b *regBuilder) bestSplit(idx []int, gs, hs float64) (int, float64, bool) {
	parent := gs * gs / (hs + b.lambda)
	best := 1e-12
	bestFeat, bestThr, found := 0, 0.0, false

	sorted := make([]int, len(idx))
	for f := range b.x[0] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })
		var gl, hl float64
		for j := 0; j < len(sorted)-1; j++ {
			i := sorted[j]
			gl += b.g[i]
			hl += b.h[i]
			lo, hi := b.x[i][f], b.x[sorted[j+1]][f]
			if lo == hi {
				continue
			}
			hr := hs - hl
			if hl < b.minChild || hr < b.minChild {
				continue
			}
			gr := gs - gl
			gain := gl*gl/(hl+b.lambda) + gr*gr/(hr+b.lambda) - parent
			if gain > best {
				best, bestFeat, bestThr, found = gain, f, lo+(hi-lo)/2, true
			}
		}
	}
	return bestFeat, bestThr, found
}
