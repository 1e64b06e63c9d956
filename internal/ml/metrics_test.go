package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	r := Evaluate([]int{0, 0, 1, 1, 2}, []int{0, 1, 1, 1, 0}, []string{"a", "b", "c"})

	assert.Equal(t, [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 0}}, r.Confusion)
	assert.InDelta(t, 0.6, r.Accuracy, 1e-12)

	assert.InDelta(t, 0.5, r.PerClass[0].Precision, 1e-12)
	assert.InDelta(t, 0.5, r.PerClass[0].Recall, 1e-12)
	assert.InDelta(t, 2.0/3, r.PerClass[1].Precision, 1e-12)
	assert.InDelta(t, 0.8, r.PerClass[1].F1, 1e-12)
	// nothing predicted as c: precision falls back to 1
	assert.InDelta(t, 1.0, r.PerClass[2].Precision, 1e-12)
	assert.InDelta(t, 0.0, r.PerClass[2].Recall, 1e-12)
	assert.Equal(t, 1, r.PerClass[2].Support)

	assert.InDelta(t, (0.5+2.0/3+1)/3, r.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, 0.5, r.MacroAvg.Recall, 1e-12)
	assert.InDelta(t, 1.3/3, r.MacroAvg.F1, 1e-12)
	assert.Equal(t, 5, r.MacroAvg.Support)
	assert.InDelta(t, (2*0.5+2*0.8)/5, r.WeightedAvg.F1, 1e-12)
}

func TestEvaluate_Empty(t *testing.T) {
	r := Evaluate(nil, nil, []string{"a"})
	assert.Zero(t, r.Accuracy)
	assert.Equal(t, 1.0, r.PerClass[0].Precision)
	assert.Equal(t, 1.0, r.PerClass[0].Recall)
}
