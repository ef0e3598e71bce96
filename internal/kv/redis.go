package kv

import (
	"context"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/gomarketplace/internal/errors"
	"github.com/redis/go-redis/v9"
)

// Redis implements Storage using plain Redis string keys.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a new Redis storage on top of an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get retrieves the value stored under key.
// Returns ErrKeyNotFound if the key does not exist.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", carterrors.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis GET %q failed: %w", key, err)
	}
	return val, nil
}

// Set stores value under key without expiration.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %q failed: %w", key, err)
	}
	return nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING failed: %w", err)
	}
	return nil
}
