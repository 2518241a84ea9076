package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CHURN_STORE_KIND.
const EnvPrefix = "CHURN"

var defaults = map[string]any{
	"logging.level":        "info",
	"logging.format":       "json",
	"data.path":            "telco_churn_cleaned.csv",
	"model.name":           "churn_model.gob",
	"model.solver":         "lbfgs",
	"model.c":              1.0,
	"model.max_iter":       1000,
	"model.tol":            1e-5,
	"model.learning_rate":  0.1,
	"model.batch_size":     64,
	"store.kind":           "file",
	"store.dir":            ".",
	"store.redis.address":  "localhost:6379",
	"store.redis.password": "",
	"store.redis.db":       0,
	"store.redis.prefix":   "churn:",
	"store.s3.bucket":      "",
	"store.s3.prefix":      "",
	"store.s3.region":      "us-east-1",
	"store.s3.endpoint":    "",
	"store.s3.access_key":  "",
	"store.s3.secret_key":  "",
	"server.address":       ":8080",
	"server.read_timeout":  10 * time.Second,
	"server.write_timeout": 10 * time.Second,
	"server.similar_k":     10,
	"audit.database_url":   "",
}

// Load reads an optional YAML file at path (or config.yaml in . or ./configs
// when path is empty), a .env file if present, and CHURN_* environment
// overrides, in increasing precedence.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("error reading .env: %w", err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	switch cfg.Model.Solver {
	case "lbfgs", "sgd":
	default:
		return fmt.Errorf("model.solver must be lbfgs or sgd, got %q", cfg.Model.Solver)
	}
	if cfg.Model.C <= 0 {
		return fmt.Errorf("model.c must be positive")
	}
	if cfg.Model.MaxIter < 1 {
		return fmt.Errorf("model.max_iter must be at least 1")
	}
	if cfg.Model.Tol <= 0 {
		return fmt.Errorf("model.tol must be positive")
	}
	if cfg.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}

	switch cfg.Store.Kind {
	case "file":
		if cfg.Store.Dir == "" {
			return fmt.Errorf("store.dir is required")
		}
	case "redis":
		if cfg.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address is required")
		}
	case "s3":
		if cfg.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.bucket is required")
		}
	default:
		return fmt.Errorf("store.kind must be file, redis or s3, got %q", cfg.Store.Kind)
	}

	if cfg.Server.SimilarK < 1 {
		return fmt.Errorf("server.similar_k must be at least 1")
	}
	return nil
}
