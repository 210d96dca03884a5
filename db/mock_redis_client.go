package db

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"
)

// MockRedisClient simulates a Redis client for testing purposes.
type MockRedisClient struct {
	data    map[string]string
	ttls    map[string]time.Duration
	mu      sync.RWMutex
	context context.Context
}

// NewMockRedisClient initializes a new MockRedisClient.
func NewMockRedisClient(ctx context.Context) *MockRedisClient {
	return &MockRedisClient{
		data:    make(map[string]string),
		ttls:    make(map[string]time.Duration),
		context: ctx,
	}
}

// Set stores a key-value pair in the mock Redis.
func (m *MockRedisClient) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	delete(m.ttls, key)
	return nil
}

// Get retrieves a value for a given key from the mock Redis.
func (m *MockRedisClient) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, exists := m.data[key]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return value, nil
}

// SetNX stores the value only for a new key. Expiry is recorded, not
// enforced.
func (m *MockRedisClient) SetNX(key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = value
	m.setTTL(key, ttl)
	return true, nil
}

// SetEX stores the value and records its expiry.
func (m *MockRedisClient) SetEX(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.setTTL(key, ttl)
	return nil
}

// TTL returns the recorded expiry, -1 for a key without one and -2 for a
// missing key.
func (m *MockRedisClient) TTL(key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, exists := m.data[key]; !exists {
		return -2, nil
	}
	if ttl, ok := m.ttls[key]; ok {
		return ttl, nil
	}
	return -1, nil
}

func (m *MockRedisClient) setTTL(key string, ttl time.Duration) {
	if ttl > 0 {
		m.ttls[key] = ttl
		return
	}
	delete(m.ttls, key)
}

// Keys returns the keys matching a glob pattern, sorted.
func (m *MockRedisClient) Keys(pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockRedisClient) Del(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.ttls, key)
	return nil
}

// GetContext returns the mock Redis client's context.
func (m *MockRedisClient) GetContext() context.Context {
	return m.context
}

// Ping always succeeds.
func (m *MockRedisClient) Ping() error {
	return nil
}
