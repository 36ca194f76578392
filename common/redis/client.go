package redis

import (
	"context"
	"fmt"
	"time"

	"voter-outreach/common/config"

	"github.com/go-redis/redis/v8"
)

// Client alias so callers don't import go-redis directly.
type Client = redis.Client

// Redis backs import job state and the readiness check, so a dead server
// must fail fast instead of hanging a request.
const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
)

// NewRedisClient creates a go-redis client (Redis 客户端).
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
}

// Ping checks connectivity; the error names the address.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", client.Options().Addr, err)
	}
	return nil
}

// Close closes the client; nil is a no-op.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
