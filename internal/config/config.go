package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig   `yaml:"store" mapstructure:"store"`
	Data     DataConfig    `yaml:"data" mapstructure:"data"`
	Features FeatureConfig `yaml:"features" mapstructure:"features"`
	Model    ModelConfig   `yaml:"model" mapstructure:"model"`
	Server   ServerConfig  `yaml:"server" mapstructure:"server"`
	Cache    CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Fetch    FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Log      LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DataConfig locates the pipeline's CSV files and their download sources.
type DataConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	RawFile       string `yaml:"raw_file" mapstructure:"raw_file"`
	CleanFile     string `yaml:"clean_file" mapstructure:"clean_file"`
	ProcessedFile string `yaml:"processed_file" mapstructure:"processed_file"`
	RawURL        string `yaml:"raw_url" mapstructure:"raw_url"`
	CleanURL      string `yaml:"clean_url" mapstructure:"clean_url"`
}

// RawPath returns the raw extract path under Dir.
func (d DataConfig) RawPath() string { return filepath.Join(d.Dir, d.RawFile) }

// CleanPath returns the cleaned CSV path under Dir.
func (d DataConfig) CleanPath() string { return filepath.Join(d.Dir, d.CleanFile) }

// ProcessedPath returns the engineered CSV path under Dir.
func (d DataConfig) ProcessedPath() string { return filepath.Join(d.Dir, d.ProcessedFile) }

// FeatureConfig configures clustering and balancing.
type FeatureConfig struct {
	ChunkSize      int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	Eps            float64 `yaml:"eps" mapstructure:"eps"`
	MinSamples     int     `yaml:"min_samples" mapstructure:"min_samples"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	Seed           uint64  `yaml:"seed" mapstructure:"seed"`
	FactorFallback bool    `yaml:"factor_fallback" mapstructure:"factor_fallback"`
}

// ModelConfig configures training and the artifact directory.
type ModelConfig struct {
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	URL         string  `yaml:"url" mapstructure:"url"`
	Trees       int     `yaml:"trees" mapstructure:"trees"`
	MaxDepth    int     `yaml:"max_depth" mapstructure:"max_depth"`
	BoostRounds int     `yaml:"boost_rounds" mapstructure:"boost_rounds"`
	BoostDepth  int     `yaml:"boost_depth" mapstructure:"boost_depth"`
	TestSize    float64 `yaml:"test_size" mapstructure:"test_size"`
	SMOTEK      int     `yaml:"smote_k" mapstructure:"smote_k"`
	Seed        uint64  `yaml:"seed" mapstructure:"seed"`
	Workers     int     `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// CacheConfig configures the dashboard's in-process cache.
type CacheConfig struct {
	TTLSecs int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// TTL returns the cache lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSecs) * time.Second }

// FetchConfig configures downloads of missing inputs.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads .env (when present), config.yaml from the working directory and
// COLLISION_-prefixed environment variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COLLISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "data/collision_data.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.raw_file", "raw_dataset.csv")
	v.SetDefault("data.clean_file", "clean_collision_data.csv")
	v.SetDefault("data.processed_file", "processed_collision_data.csv")
	v.SetDefault("data.raw_url", "https://drive.google.com/uc?id=15QJIa6AxucXFIwCEITNL_uioh8cEj8Er")
	v.SetDefault("data.clean_url", "https://drive.google.com/uc?id=12YVvDoTXSMhq65jYXiDpLW0pvLY-J8M1")
	v.SetDefault("features.chunk_size", 10000)
	v.SetDefault("features.eps", 0.01)
	v.SetDefault("features.min_samples", 10)
	v.SetDefault("features.workers", 1)
	v.SetDefault("features.seed", 42)
	v.SetDefault("features.factor_fallback", false)
	v.SetDefault("model.dir", "models")
	v.SetDefault("model.url", "")
	v.SetDefault("model.trees", 100)
	v.SetDefault("model.max_depth", 12)
	v.SetDefault("model.boost_rounds", 100)
	v.SetDefault("model.boost_depth", 6)
	v.SetDefault("model.test_size", 0.2)
	v.SetDefault("model.smote_k", 5)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.workers", 4)
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("cache.ttl_secs", 300)
	v.SetDefault("fetch.timeout_secs", 600)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "collision-cli/1.0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
