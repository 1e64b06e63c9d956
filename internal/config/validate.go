package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validation modes.
const (
	ModePipeline = "pipeline"
	ModeServe    = "serve"
)

// Validate checks the settings a mode depends on and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case ModePipeline:
		if c.Features.ChunkSize < 1 {
			errs = append(errs, "features.chunk_size must be > 0")
		}
		if c.Features.Eps <= 0 {
			errs = append(errs, "features.eps must be > 0")
		}
		if c.Features.MinSamples < 1 {
			errs = append(errs, "features.min_samples must be > 0")
		}
		if c.Model.TestSize <= 0 || c.Model.TestSize >= 1 {
			errs = append(errs, "model.test_size must be between 0 and 1")
		}
		if c.Model.Trees < 1 {
			errs = append(errs, "model.trees must be > 0")
		}
	case ModeServe:
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Model.Dir == "" {
			errs = append(errs, "model.dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
