package config

import (
	"time"

	"telcochurn/pkg/model"
)

// Config is the application configuration shared by the binaries.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Data    DataConfig    `mapstructure:"data"`
	Model   ModelConfig   `mapstructure:"model"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type DataConfig struct {
	Path string `mapstructure:"path"`
}

// ModelConfig holds the training hyperparameters and the artifact name.
type ModelConfig struct {
	Name         string  `mapstructure:"name"`
	Solver       string  `mapstructure:"solver"`
	C            float64 `mapstructure:"c"`
	MaxIter      int     `mapstructure:"max_iter"`
	Tol          float64 `mapstructure:"tol"`
	LearningRate float64 `mapstructure:"learning_rate"`
	BatchSize    int     `mapstructure:"batch_size"`
}

// Options converts the hyperparameters to model options.
func (m ModelConfig) Options() []model.Option {
	return []model.Option{
		model.WithSolver(model.Solver(m.Solver)),
		model.WithC(m.C),
		model.WithMaxIter(m.MaxIter),
		model.WithTol(m.Tol),
		model.WithLearningRate(m.LearningRate),
		model.WithBatchSize(m.BatchSize),
	}
}

// StoreConfig selects where artifacts live: file, redis or s3.
type StoreConfig struct {
	Kind  string      `mapstructure:"kind"`
	Dir   string      `mapstructure:"dir"`
	Redis RedisConfig `mapstructure:"redis"`
	S3    S3Config    `mapstructure:"s3"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SimilarK     int           `mapstructure:"similar_k"`
}

// AuditConfig enables the Postgres log of scoring requests when
// DatabaseURL is set.
type AuditConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}
