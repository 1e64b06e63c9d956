// Package pipeline runs the batch stages that turn the raw collision extract into
// a loaded database and a trained model.
package pipeline

import (
	"context"

	"github.com/sells-group/collision-cli/internal/config"
	"github.com/sells-group/collision-cli/internal/fetcher"
	"github.com/sells-group/collision-cli/internal/metrics"
	"github.com/sells-group/collision-cli/internal/store"
)

// Stage names, in pipeline order.
const (
	StageClean    = "clean"
	StageFeatures = "features"
	StageLoad     = "load"
	StageTrain    = "train"
)

// Result holds the outcome of a stage run.
type Result struct {
	Records  int64          `json:"records"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Stage is one step of the batch pipeline. Stages communicate only through
// files and the store, so each can be rerun alone.
type Stage interface {
	Name() string
	Run(ctx context.Context, env *Env) (*Result, error)
}

// Env is the shared context handed to every stage.
type Env struct {
	Config    *config.Config
	Fetcher   fetcher.Fetcher
	Metrics   *metrics.Metrics // optional
	OpenStore func(ctx context.Context) (store.Store, error)
}

// NewEnv wires the default fetcher and store opener for cfg.
func NewEnv(cfg *config.Config, m *metrics.Metrics) *Env {
	return &Env{
		Config:    cfg,
		Fetcher:   NewFetcher(cfg.Fetch),
		Metrics:   m,
		OpenStore: StoreOpener(cfg.Store),
	}
}

// NewFetcher builds the scheme-routing fetcher from config.
func NewFetcher(cfg config.FetchConfig) fetcher.Fetcher {
	return fetcher.NewRouter(
		fetcher.HTTPOptions{
			UserAgent:  cfg.UserAgent,
			Timeout:    secs(cfg.TimeoutSecs),
			MaxRetries: cfg.MaxRetries,
		},
		fetcher.FTPOptions{Timeout: secs(cfg.TimeoutSecs)},
	)
}

// StoreOpener returns a function opening the configured backend.
func StoreOpener(cfg config.StoreConfig) func(ctx context.Context) (store.Store, error) {
	return func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, store.Options{
			Driver:      cfg.Driver,
			SQLitePath:  cfg.SQLitePath,
			DatabaseURL: cfg.DatabaseURL,
			Pool:        &store.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns},
		})
	}
}

func (e *Env) addRecords(stage, kind string, n int) {
	if e.Metrics != nil {
		e.Metrics.AddRecords(stage, kind, n)
	}
}
