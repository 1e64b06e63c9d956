package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/cluster"
	"github.com/sells-group/collision-cli/internal/config"
	"github.com/sells-group/collision-cli/internal/feature"
	"github.com/sells-group/collision-cli/internal/fetcher"
	"github.com/sells-group/collision-cli/internal/geo"
	"github.com/sells-group/collision-cli/internal/ingest"
	"github.com/sells-group/collision-cli/internal/ml"
	"github.com/sells-group/collision-cli/internal/model"
	"github.com/sells-group/collision-cli/internal/stats"
)

// CleanStage turns the raw extract into the clean CSV.
type CleanStage struct{}

// Name implements Stage.
func (CleanStage) Name() string { return StageClean }

// Run implements Stage.
func (CleanStage) Run(ctx context.Context, env *Env) (*Result, error) {
	d := env.Config.Data
	if err := fetcher.EnsureFile(ctx, env.Fetcher, d.RawPath(), d.RawURL); err != nil {
		return nil, err
	}
	rep, err := ingest.CleanFile(ctx, d.RawPath(), d.CleanPath())
	if err != nil {
		return nil, err
	}
	env.addRecords(StageClean, "read", rep.Rows)
	env.addRecords(StageClean, "dropped", rep.Rows-rep.Kept)
	env.addRecords(StageClean, "written", rep.Kept)
	return &Result{
		Records: int64(rep.Kept),
		Metadata: map[string]any{
			"rows":           rep.Rows,
			"duplicates":     rep.Duplicates,
			"missing_coords": rep.MissingCoords,
			"missing_counts": rep.MissingCounts,
			"bad_timestamps": rep.BadTimestamps,
		},
	}, nil
}

// FeatureStage derives features, clusters and balances the clean records.
type FeatureStage struct{}

// Name implements Stage.
func (FeatureStage) Name() string { return StageFeatures }

// Run implements Stage.
func (FeatureStage) Run(ctx context.Context, env *Env) (*Result, error) {
	d, fc := env.Config.Data, env.Config.Features
	if err := fetcher.EnsureFile(ctx, env.Fetcher, d.CleanPath(), d.CleanURL); err != nil {
		return nil, err
	}
	clean, err := ingest.ReadClean(d.CleanPath())
	if err != nil {
		return nil, err
	}
	env.addRecords(StageFeatures, "read", len(clean))

	res, err := feature.Engineer(ctx, clean, FeatureOptions(fc))
	if err != nil {
		return nil, err
	}
	if err := ingest.WriteCSV(d.ProcessedPath(), res.Records); err != nil {
		return nil, err
	}
	env.addRecords(StageFeatures, "written", len(res.Records))
	return &Result{
		Records: int64(len(res.Records)),
		Metadata: map[string]any{
			"low_before": res.Before[model.SeverityLow],
			"low_after":  res.After[model.SeverityLow],
			"medium":     res.After[model.SeverityMedium],
			"high":       res.After[model.SeverityHigh],
		},
	}, nil
}

// FeatureOptions maps config onto feature.Options.
func FeatureOptions(fc config.FeatureConfig) feature.Options {
	return feature.Options{
		Cluster: cluster.ChunkOptions{
			Size:    fc.ChunkSize,
			Params:  cluster.Params{Eps: fc.Eps, MinSamples: fc.MinSamples},
			Workers: fc.Workers,
		},
		Seed:           fc.Seed,
		FactorFallback: fc.FactorFallback,
	}
}

// LoadStage assigns boroughs and rebuilds every table from the processed CSV.
type LoadStage struct{}

// Name implements Stage.
func (LoadStage) Name() string { return StageLoad }

// Run implements Stage.
func (LoadStage) Run(ctx context.Context, env *Env) (*Result, error) {
	records, err := ingest.ReadProcessed(env.Config.Data.ProcessedPath())
	if err != nil {
		return nil, err
	}
	env.addRecords(StageLoad, "read", len(records))

	boroughs := geo.Boroughs()
	records = geo.AssignAll(records, boroughs)
	gs := stats.Compute(records)

	st, err := env.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	if err := st.ReplaceBoroughs(ctx, boroughs); err != nil {
		return nil, err
	}
	n, err := st.ReplaceCollisions(ctx, records)
	if err != nil {
		return nil, err
	}
	if err := st.SaveGlobalStatistics(ctx, gs); err != nil {
		return nil, err
	}
	env.addRecords(StageLoad, "written", int(n))

	zap.L().With(zap.String("component", "pipeline")).Info("tables rebuilt",
		zap.Int64("collisions", n),
		zap.Int("boroughs", len(boroughs)),
		zap.String("statistics_version", gs.Version),
	)
	return &Result{
		Records:  n,
		Metadata: map[string]any{"statistics_version": gs.Version, "unassigned": countUnassigned(records)},
	}, nil
}

func countUnassigned(records []model.Collision) int {
	n := 0
	for i := range records {
		if records[i].Borough == model.Unknown {
			n++
		}
	}
	return n
}

// TrainStage fits the classifiers on the loaded collisions and writes the artifact.
type TrainStage struct{}

// Name implements Stage.
func (TrainStage) Name() string { return StageTrain }

// Run implements Stage.
func (TrainStage) Run(ctx context.Context, env *Env) (*Result, error) {
	st, err := env.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	records, err := st.AllCollisions(ctx)
	st.Close() //nolint:errcheck
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.New("pipeline: no collisions loaded; run the load stage first")
	}
	env.addRecords(StageTrain, "read", len(records))

	res, err := ml.Train(ctx, records, TrainOptions(env.Config.Model))
	if err != nil {
		return nil, err
	}
	if err := res.Artifact.Save(env.Config.Model.Dir); err != nil {
		return nil, err
	}
	meta := map[string]any{
		"forest_accuracy": res.Forest.Accuracy,
		"forest_macro_f1": res.Forest.MacroAvg.F1,
		"features":        len(res.Artifact.FeatureNames),
	}
	if res.Boosting != nil {
		meta["boosting_accuracy"] = res.Boosting.Accuracy
		meta["boosting_macro_f1"] = res.Boosting.MacroAvg.F1
	}
	if res.Logistic != nil {
		meta["logistic_accuracy"] = res.Logistic.Accuracy
	}
	return &Result{Records: int64(res.Artifact.Manifest.Rows), Metadata: meta}, nil
}

// TrainOptions maps config onto ml.TrainOptions.
func TrainOptions(mc config.ModelConfig) ml.TrainOptions {
	opts := ml.DefaultTrainOptions()
	if mc.Trees > 0 {
		opts.Forest.NEstimators = mc.Trees
	}
	if mc.MaxDepth > 0 {
		opts.Forest.MaxDepth = mc.MaxDepth
	}
	if mc.BoostRounds > 0 {
		opts.Boosting.Rounds = mc.BoostRounds
	}
	if mc.BoostDepth > 0 {
		opts.Boosting.MaxDepth = mc.BoostDepth
	}
	if mc.Workers > 0 {
		opts.Forest.Workers = mc.Workers
		opts.Boosting.Workers = mc.Workers
		opts.SMOTE.Workers = mc.Workers
	}
	if mc.SMOTEK > 0 {
		opts.SMOTE.Neighbors = mc.SMOTEK
	}
	if mc.TestSize > 0 {
		opts.TestSize = mc.TestSize
	}
	if mc.Seed > 0 {
		opts.Seed = mc.Seed
		opts.Forest.Seed = mc.Seed
		opts.SMOTE.Seed = mc.Seed
	}
	return opts
}
