package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps artifacts as string values under Prefix+name.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// NewRedisStore creates a client for addr. Nothing is dialed until first use.
func NewRedisStore(addr, password string, db int, prefix string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisStore{Client: rdb, Prefix: prefix}
}

func (s *RedisStore) key(name string) string { return s.Prefix + name }

func (s *RedisStore) Location(name string) string {
	return fmt.Sprintf("redis://%s/%s", s.Client.Options().Addr, s.key(name))
}

func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	b, err := s.Client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Location(name))
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return b, nil
}

func (s *RedisStore) Put(ctx context.Context, name string, b []byte) error {
	if err := s.Client.Set(ctx, s.key(name), b, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Ping tests the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.Client.Close() }
