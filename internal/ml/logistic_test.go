package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogisticRegression_SeparatesClusters(t *testing.T) {
	centers := [][]float64{{-2, 0}, {2, 0}, {0, 2}}
	offsets := [][]float64{{0, 0}, {0.2, 0.1}, {-0.1, 0.2}, {0.1, -0.2}, {-0.2, -0.1}}
	var x [][]float64
	var y []int
	for c, ctr := range centers {
		for _, o := range offsets {
			x = append(x, []float64{ctr[0] + o[0], ctr[1] + o[1]})
			y = append(y, c)
		}
	}

	m := NewLogisticRegression(LogisticParams{LearningRate: 0.5, Epochs: 500})
	require.NoError(t, m.Fit(context.Background(), x, y, 3))

	for c, ctr := range centers {
		assert.Equal(t, c, m.Predict(ctr))
		p := m.PredictProba(ctr)
		assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-9)
	}
}

func TestLogisticRegression_Errors(t *testing.T) {
	m := NewLogisticRegression(LogisticParams{})
	assert.Error(t, m.Fit(context.Background(), nil, nil, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, m.Fit(ctx, [][]float64{{1}, {2}}, []int{0, 1}, 2))
}

func TestSoftmax(t *testing.T) {
	z := []float64{1000, 1000}
	softmax(z)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, z, 1e-12)
}
