// Package cache keeps the rows of read statements so repeated fetches skip
// the graph store. Any write statement clears it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache defines the interface for all cache backends
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values stored under the cache prefix
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend
	Close() error
}

// CacheConfig holds common configuration for cache backends
type CacheConfig struct {
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
	// SweepInterval is how often the memory backend drops expired items
	SweepInterval time.Duration
}

// DefaultCacheConfig returns a default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL:    time.Minute,
		Prefix:        "graphorm:",
		SweepInterval: time.Minute,
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New creates the backend named by backend. The redis backend pings the
// server before returning.
func New(backend string, config CacheConfig, redisConfig RedisConfig) (Cache, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryCacheWithConfig(config), nil
	case BackendRedis:
		redisConfig.CacheConfig = config
		return NewRedisCache(redisConfig)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", backend)
	}
}
