package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves the test into an empty directory so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/collision_data.db", cfg.Store.SQLitePath)
	assert.Equal(t, filepath.Join("data", "raw_dataset.csv"), cfg.Data.RawPath())
	assert.Equal(t, filepath.Join("data", "clean_collision_data.csv"), cfg.Data.CleanPath())
	assert.Equal(t, filepath.Join("data", "processed_collision_data.csv"), cfg.Data.ProcessedPath())
	assert.Equal(t, 10000, cfg.Features.ChunkSize)
	assert.InDelta(t, 0.01, cfg.Features.Eps, 1e-12)
	assert.Equal(t, 10, cfg.Features.MinSamples)
	assert.Equal(t, uint64(42), cfg.Features.Seed)
	assert.False(t, cfg.Features.FactorFallback)
	assert.Equal(t, "models", cfg.Model.Dir)
	assert.Equal(t, 100, cfg.Model.Trees)
	assert.Equal(t, 12, cfg.Model.MaxDepth)
	assert.Equal(t, 100, cfg.Model.BoostRounds)
	assert.Equal(t, 6, cfg.Model.BoostDepth)
	assert.InDelta(t, 0.2, cfg.Model.TestSize, 1e-12)
	assert.Equal(t, 5, cfg.Model.SMOTEK)
	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/collisions
features:
  workers: 4
  factor_fallback: true
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/collisions", cfg.Store.DatabaseURL)
	assert.Equal(t, 4, cfg.Features.Workers)
	assert.True(t, cfg.Features.FactorFallback)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 10000, cfg.Features.ChunkSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9000\n"), 0o644))
	t.Setenv("COLLISION_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COLLISION_MODEL_TREES=7\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("COLLISION_MODEL_TREES") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Model.Trees)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

// validDefaults returns a Config with the defaults validation depends on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "data/collision_data.db"
	cfg.Features.ChunkSize = 10000
	cfg.Features.Eps = 0.01
	cfg.Features.MinSamples = 10
	cfg.Model.Dir = "models"
	cfg.Model.Trees = 100
	cfg.Model.TestSize = 0.2
	cfg.Server.Port = 8501
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate(ModePipeline))
	assert.NoError(t, cfg.Validate(ModeServe))
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate(ModePipeline)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/collisions"
	assert.NoError(t, cfg.Validate(ModePipeline))
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Features.Eps = 0
	cfg.Model.TestSize = 1

	err := cfg.Validate(ModePipeline)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "features.eps must be > 0")
	assert.Contains(t, err.Error(), "model.test_size must be between 0 and 1")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be between 1 and 65535")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
