package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Engine runs pipeline stages in order.
type Engine struct {
	env *Env
	reg *Registry
}

// StageRun records one executed stage.
type StageRun struct {
	Stage   string        `json:"stage"`
	Result  *Result       `json:"result,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// NewEngine creates a new pipeline engine.
func NewEngine(env *Env, reg *Registry) *Engine {
	return &Engine{env: env, reg: reg}
}

// Run executes the selected stages sequentially. Later stages read what earlier
// ones wrote, so the first failure stops the run; the runs completed so far are
// returned alongside the error.
func (e *Engine) Run(ctx context.Context, names []string) ([]StageRun, error) {
	log := zap.L().With(zap.String("component", "pipeline.engine"))

	stages, err := e.reg.Select(names)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		log.Info("no stages selected")
		return nil, nil
	}

	var runs []StageRun
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		stLog := log.With(zap.String("stage", st.Name()))
		stLog.Info("starting stage")

		start := time.Now()
		result, err := st.Run(ctx, e.env)
		elapsed := time.Since(start)
		if e.env.Metrics != nil {
			e.env.Metrics.ObserveStage(st.Name(), start, err)
		}

		if err != nil {
			stLog.Error("stage failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			return runs, eris.Wrapf(err, "pipeline: stage %s", st.Name())
		}
		if result == nil {
			result = &Result{}
		}

		stLog.Info("stage complete",
			zap.Int64("records", result.Records),
			zap.Any("metadata", result.Metadata),
			zap.Duration("elapsed", elapsed),
		)
		runs = append(runs, StageRun{Stage: st.Name(), Result: result, Elapsed: elapsed})
	}

	log.Info("pipeline run complete", zap.Int("stages", len(runs)))
	return runs, nil
}
