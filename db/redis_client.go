package db

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// RedisClient defines the methods available in the RedisClient
type RedisClient interface {
	Set(key, value string) error
	Get(key string) (string, error)
	SetNX(key, value string, ttl time.Duration) (bool, error)
	SetEX(key, value string, ttl time.Duration) error
	TTL(key string) (time.Duration, error)
	GetContext() context.Context
	Ping() error
	Keys(pattern string) ([]string, error)
	Del(key string) error
}
