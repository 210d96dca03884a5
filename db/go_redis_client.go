package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// GoRedisClient struct holds the Redis client and context
type GoRedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewGoRedisClient wraps client and checks the connection.
func NewGoRedisClient(ctx context.Context, client *redis.Client) (*GoRedisClient, error) {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to redis: %w", err)
	}
	log.Info().Str("component", "db").Str("addr", client.Options().Addr).Msg("connected to redis")

	return &GoRedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// Set sets a key-value pair in Redis
func (r *GoRedisClient) Set(key, value string) error {
	return r.client.Set(r.ctx, key, value, 0).Err()
}

// Get retrieves the value for a given key from Redis
func (r *GoRedisClient) Get(key string) (string, error) {
	val, err := r.client.Get(r.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return val, err
}

// SetNX sets key only when it does not exist yet and reports whether it did.
func (r *GoRedisClient) SetNX(key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(r.ctx, key, value, ttl).Result()
}

// SetEX sets key with an expiry.
func (r *GoRedisClient) SetEX(key, value string, ttl time.Duration) error {
	return r.client.Set(r.ctx, key, value, ttl).Err()
}

// TTL returns the remaining time to live of key. Negative values follow the
// Redis convention for missing or persistent keys.
func (r *GoRedisClient) TTL(key string) (time.Duration, error) {
	return r.client.TTL(r.ctx, key).Result()
}

func (r *GoRedisClient) Keys(pattern string) ([]string, error) {
	return r.client.Keys(r.ctx, pattern).Result()
}

func (r *GoRedisClient) Del(key string) error {
	return r.client.Del(r.ctx, key).Err()
}

func (r *GoRedisClient) GetContext() context.Context {
	return r.ctx
}

func (r *GoRedisClient) Ping() error {
	_, err := r.client.Ping(r.ctx).Result()
	return err
}

// Close releases the underlying connection pool.
func (r *GoRedisClient) Close() error {
	return r.client.Close()
}
