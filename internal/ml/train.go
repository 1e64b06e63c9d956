package ml

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/model"
)

// Model names used in the manifest.
const (
	ModelRandomForest = "random_forest"
	ModelBoosting     = "gradient_boosting"
	ModelLogistic     = "logistic_regression"
)

// TrainOptions configures Train.
type TrainOptions struct {
	Forest       ForestParams
	Boosting     BoostParams
	Logistic     LogisticParams
	SMOTE        SMOTEOptions
	TestSize     float64
	Seed         uint64
	SkipBoosting bool
	SkipLogistic bool
}

// DefaultTrainOptions returns seed 42, a 20% test split and SMOTE with k=5.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Forest:   DefaultForestParams(),
		Boosting: DefaultBoostParams(),
		Logistic: DefaultLogisticParams(),
		SMOTE:    SMOTEOptions{Neighbors: DefaultNeighbors, Seed: 42, Workers: 4},
		TestSize: 0.2,
		Seed:     42,
	}
}

// TrainResult is a trained artifact plus its held-out reports.
type TrainResult struct {
	Artifact *Artifact
	Forest   Report
	Boosting *Report
	Logistic *Report
}

// Train encodes the severity labels, fits the preprocessor, oversamples every
// class with SMOTE, splits train/test and fits both classifiers.
func Train(ctx context.Context, records []model.Collision, opts TrainOptions) (*TrainResult, error) {
	log := zap.L().With(zap.String("component", "ml"))
	if len(records) == 0 {
		return nil, eris.New("ml: train on empty input")
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		opts.TestSize = 0.2
	}

	labels := make([]string, len(records))
	rows := make([]map[string]string, len(records))
	for i := range records {
		labels[i] = string(records[i].SeverityCategory)
		rows[i] = Row(records[i])
	}
	enc := FitLabelEncoder(labels)
	y, err := enc.Transform(labels)
	if err != nil {
		return nil, err
	}

	pre, err := FitPreprocessor(rows)
	if err != nil {
		return nil, err
	}
	x, err := pre.TransformAll(rows)
	if err != nil {
		return nil, err
	}
	k := len(enc.Classes)

	x, y, err = Oversample(ctx, x, y, k, opts.SMOTE)
	if err != nil {
		return nil, eris.Wrap(err, "ml: oversample")
	}
	log.Info("oversampled classes", zap.Int("rows_before", len(records)), zap.Int("rows_after", len(x)))

	split := TrainTestSplit(x, y, opts.TestSize, opts.Seed)
	if len(split.TrainX) == 0 {
		return nil, eris.New("ml: no training rows after split")
	}

	forest := NewRandomForest(opts.Forest)
	start := time.Now()
	if err := forest.Fit(ctx, split.TrainX, split.TrainY, k); err != nil {
		return nil, eris.Wrap(err, "ml: fit random forest")
	}
	forestReport := Evaluate(split.TestY, predictAll(forest.Predict, split.TestX), enc.Classes)
	log.Info("random forest trained",
		zap.Duration("elapsed", time.Since(start)),
		zap.Float64("accuracy", forestReport.Accuracy),
		zap.Float64("macro_f1", forestReport.MacroAvg.F1),
	)

	res := &TrainResult{
		Forest: forestReport,
		Artifact: &Artifact{
			Forest:       ForestModel{Preprocessor: pre, Forest: forest},
			Encoder:      enc,
			FeatureNames: pre.FeatureNames(),
			Manifest: Manifest{
				TrainedAt: time.Now().UTC(),
				Rows:      len(records),
				Features:  len(pre.FeatureNames()),
				Classes:   enc.Classes,
				Models: map[string]ModelSummary{
					ModelRandomForest: {Accuracy: forestReport.Accuracy, MacroF1: forestReport.MacroAvg.F1},
				},
			},
		},
	}

	if !opts.SkipBoosting {
		gb := NewGradientBoosting(opts.Boosting)
		start = time.Now()
		if err := gb.Fit(ctx, split.TrainX, split.TrainY, k); err != nil {
			return nil, eris.Wrap(err, "ml: fit gradient boosting")
		}
		gbReport := Evaluate(split.TestY, predictAll(gb.Predict, split.TestX), enc.Classes)
		log.Info("gradient boosting trained",
			zap.Duration("elapsed", time.Since(start)),
			zap.Float64("accuracy", gbReport.Accuracy),
			zap.Float64("macro_f1", gbReport.MacroAvg.F1),
		)
		res.Boosting = &gbReport
		res.Artifact.Boosting = &BoostingModel{Preprocessor: pre, Boosting: gb}
		res.Artifact.Manifest.Models[ModelBoosting] = ModelSummary{Accuracy: gbReport.Accuracy, MacroF1: gbReport.MacroAvg.F1}
	}

	if !opts.SkipLogistic {
		lr := NewLogisticRegression(opts.Logistic)
		start = time.Now()
		if err := lr.Fit(ctx, split.TrainX, split.TrainY, k); err != nil {
			return nil, eris.Wrap(err, "ml: fit logistic regression")
		}
		lrReport := Evaluate(split.TestY, predictAll(lr.Predict, split.TestX), enc.Classes)
		log.Info("logistic regression trained",
			zap.Duration("elapsed", time.Since(start)),
			zap.Float64("accuracy", lrReport.Accuracy),
			zap.Float64("macro_f1", lrReport.MacroAvg.F1),
		)
		res.Logistic = &lrReport
		res.Artifact.Logistic = &LogisticModel{Preprocessor: pre, Logistic: lr}
		res.Artifact.Manifest.Models[ModelLogistic] = ModelSummary{Accuracy: lrReport.Accuracy, MacroF1: lrReport.MacroAvg.F1}
	}
	return res, nil
}

func predictAll(predict func([]float64) int, x [][]float64) []int {
	out := make([]int, len(x))
	for i, r := range x {
		out[i] = predict(r)
	}
	return out
}
