package ml

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

// LogisticParams configures batch gradient descent.
type LogisticParams struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

// DefaultLogisticParams returns lr 0.5, 300 epochs and a small L2 penalty.
func DefaultLogisticParams() LogisticParams {
	return LogisticParams{LearningRate: 0.5, Epochs: 300, L2: 1e-4}
}

// LogisticRegression is a multinomial softmax classifier. Weights is row-major
// NFeatures x NClasses.
type LogisticRegression struct {
	Params    LogisticParams
	NFeatures int
	NClasses  int
	Weights   []float64
	Bias      []float64
}

// NewLogisticRegression returns an untrained model.
func NewLogisticRegression(p LogisticParams) *LogisticRegression {
	if p.LearningRate <= 0 {
		p.LearningRate = 0.5
	}
	if p.Epochs <= 0 {
		p.Epochs = 300
	}
	return &LogisticRegression{Params: p}
}

// Fit minimizes the mean cross-entropy plus L2 penalty by full-batch gradient descent.
func (m *LogisticRegression) Fit(ctx context.Context, x [][]float64, y []int, nClasses int) error {
	n := len(x)
	if n == 0 {
		return eris.New("ml: fit logistic regression on empty input")
	}
	d := len(x[0])
	m.NFeatures, m.NClasses = d, nClasses

	flat := make([]float64, 0, n*d)
	for _, r := range x {
		flat = append(flat, r...)
	}
	X := mat.NewDense(n, d, flat)
	Y := mat.NewDense(n, nClasses, nil)
	for i, c := range y {
		Y.Set(i, c, 1)
	}

	W := mat.NewDense(d, nClasses, nil)
	bias := make([]float64, nClasses)
	var P, G mat.Dense
	for epoch := 0; epoch < m.Params.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "ml: logistic epoch %d", epoch)
		}
		P.Mul(X, W)
		softmaxRows(&P, bias)
		P.Sub(&P, Y)

		G.Mul(X.T(), &P)
		G.Scale(1/float64(n), &G)
		if m.Params.L2 > 0 {
			var reg mat.Dense
			reg.Scale(m.Params.L2, W)
			G.Add(&G, &reg)
		}
		G.Scale(m.Params.LearningRate, &G)
		W.Sub(W, &G)

		for c := 0; c < nClasses; c++ {
			bias[c] -= m.Params.LearningRate * mat.Sum(P.ColView(c)) / float64(n)
		}
	}

	m.Weights = append([]float64(nil), W.RawMatrix().Data...)
	m.Bias = bias
	return nil
}

// PredictProba returns the softmax class distribution of one row.
func (m *LogisticRegression) PredictProba(row []float64) []float64 {
	z := append([]float64(nil), m.Bias...)
	for j, v := range row {
		if v == 0 {
			continue
		}
		for c := 0; c < m.NClasses; c++ {
			z[c] += v * m.Weights[j*m.NClasses+c]
		}
	}
	softmax(z)
	return z
}

// Predict returns the most probable class.
func (m *LogisticRegression) Predict(row []float64) int {
	return argmax(m.PredictProba(row))
}

func softmaxRows(z *mat.Dense, bias []float64) {
	r, c := z.Dims()
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			row[j] = z.At(i, j) + bias[j]
		}
		softmax(row)
		z.SetRow(i, row)
	}
}

func softmax(z []float64) {
	hi := math.Inf(-1)
	for _, v := range z {
		hi = math.Max(hi, v)
	}
	var total float64
	for i, v := range z {
		z[i] = math.Exp(v - hi)
		total += z[i]
	}
	for i := range z {
		z[i] /= total
	}
}
