package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

// Del reports whether the key existed.
func (r *RedisKV) Del(ctx context.Context, key string) (bool, error) {
	n, err := r.c.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TTL returns ErrMiss for a missing key.
func (r *RedisKV) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.c.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if d == -2 {
		return 0, ErrMiss
	}
	return d, nil
}
