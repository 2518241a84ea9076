package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telcochurn/pkg/artifact"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "lbfgs", cfg.Model.Solver)
	assert.Equal(t, 1.0, cfg.Model.C)
	assert.Equal(t, 1000, cfg.Model.MaxIter)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Server.SimilarK)
	assert.Len(t, cfg.Model.Options(), 6)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHURN_MODEL_MAX_ITER", "250")
	t.Setenv("CHURN_STORE_KIND", "redis")
	t.Setenv("CHURN_STORE_REDIS_ADDRESS", "cache:6379")

	cfg, err := Load(writeConfig(t, "model:\n  max_iter: 50\n  solver: sgd\n"))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Model.MaxIter)
	assert.Equal(t, "sgd", cfg.Model.Solver)
	assert.Equal(t, "redis", cfg.Store.Kind)
	assert.Equal(t, "cache:6379", cfg.Store.Redis.Address)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown solver", "model:\n  solver: newton\n"},
		{"non-positive C", "model:\n  c: 0\n"},
		{"zero tolerance", "model:\n  tol: 0\n"},
		{"unknown store", "store:\n  kind: ftp\n"},
		{"s3 without bucket", "store:\n  kind: s3\n"},
		{"zero neighbours", "server:\n  similar_k: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestStoreOpen(t *testing.T) {
	ctx := context.Background()

	s, err := StoreConfig{Kind: "file", Dir: t.TempDir()}.Open(ctx)
	require.NoError(t, err)
	assert.IsType(t, &artifact.FileStore{}, s)

	s, err = StoreConfig{Kind: "redis", Redis: RedisConfig{Address: "localhost:6379"}}.Open(ctx)
	require.NoError(t, err)
	assert.IsType(t, &artifact.RedisStore{}, s)

	s, err = StoreConfig{Kind: "s3", S3: S3Config{Bucket: "b", Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"}}.Open(ctx)
	require.NoError(t, err)
	assert.IsType(t, &artifact.S3Store{}, s)
}
