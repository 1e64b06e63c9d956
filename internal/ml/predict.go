package ml

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Prediction is the served classifier's answer for one input.
type Prediction struct {
	Label         string             `json:"severity_category"`
	Probabilities map[string]float64 `json:"probabilities"`
	Missing       []string           `json:"missing_features,omitempty"`
}

// Predictor serves the random forest of a loaded artifact. It is read-only and
// safe for concurrent use.
type Predictor struct {
	model        ForestModel
	encoder      *LabelEncoder
	featureNames []string
}

// NewPredictor checks that the artifact's feature names match its preprocessor.
func NewPredictor(a *Artifact) (*Predictor, error) {
	if a == nil || a.Forest.Forest == nil || a.Forest.Preprocessor == nil || a.Encoder == nil {
		return nil, eris.New("ml: incomplete model artifact")
	}
	if got, want := len(a.FeatureNames), a.Forest.Forest.NFeatures; got != want {
		return nil, eris.Errorf("ml: %d feature names for a model of %d features", got, want)
	}
	return &Predictor{model: a.Forest, encoder: a.Encoder, featureNames: a.FeatureNames}, nil
}

// FeatureNames returns the model's feature order.
func (p *Predictor) FeatureNames() []string {
	return p.featureNames
}

// Predict aligns the input, standardizes its numeric features and classifies it.
func (p *Predictor) Predict(input map[string]string) (Prediction, error) {
	aligned := AlignInput(input, p.featureNames)
	if len(aligned.Missing) > 0 {
		zap.L().With(zap.String("component", "ml")).Warn("input features not determined, left at zero",
			zap.Int("count", len(aligned.Missing)),
			zap.Strings("features", aligned.Missing),
		)
	}
	row := p.model.Preprocessor.ScaleAligned(aligned.Values, p.featureNames)
	probs := p.model.Forest.PredictProba(row)

	label, err := p.encoder.Inverse(argmax(probs))
	if err != nil {
		return Prediction{}, err
	}
	out := Prediction{Label: label, Probabilities: make(map[string]float64, len(probs)), Missing: aligned.Missing}
	for c, v := range probs {
		if c < len(p.encoder.Classes) {
			out.Probabilities[p.encoder.Classes[c]] = v
		}
	}
	return out, nil
}
