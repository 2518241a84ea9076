package config

import (
	"context"

	"telcochurn/pkg/artifact"
)

// Open builds the artifact store the configuration selects.
func (s StoreConfig) Open(ctx context.Context) (artifact.Store, error) {
	switch s.Kind {
	case "redis":
		return artifact.NewRedisStore(s.Redis.Address, s.Redis.Password, s.Redis.DB, s.Redis.Prefix), nil
	case "s3":
		return artifact.NewS3Store(ctx, artifact.S3Options{
			Bucket:    s.S3.Bucket,
			Prefix:    s.S3.Prefix,
			Region:    s.S3.Region,
			Endpoint:  s.S3.Endpoint,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
		})
	default:
		return artifact.NewFileStore(s.Dir), nil
	}
}
