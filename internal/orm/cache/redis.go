package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clearBatch is the SCAN page size used when clearing the prefix
const clearBatch = 500

// RedisCache keeps encoded statement rows in Redis, so several processes
// talking to the same graph share one cache. Every key lives under the
// configured prefix, which is all Clear touches.
type RedisCache struct {
	client *redis.Client
	config CacheConfig
}

// RedisConfig locates the Redis server
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// PingTimeout bounds the connection check of NewRedisCache. Zero means
	// five seconds.
	PingTimeout time.Duration

	CacheConfig CacheConfig
}

// DefaultRedisConfig returns the configuration of a local server
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		PingTimeout: 5 * time.Second,
		CacheConfig: DefaultCacheConfig(),
	}
}

// NewRedisCache connects to the server and pings it. The client is closed
// again when the ping fails.
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	timeout := config.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("statement cache unreachable at %s: %w", config.Addr, err)
	}

	return NewRedisCacheFromClient(client, config.CacheConfig), nil
}

// NewRedisCacheFromClient uses an existing client. Close closes it.
func NewRedisCacheFromClient(client *redis.Client, config CacheConfig) *RedisCache {
	return &RedisCache{
		client: client,
		config: config,
	}
}

func (r *RedisCache) key(k string) string {
	return r.config.Prefix + k
}

// Get returns the encoded rows stored under key, or ErrCacheMiss
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached rows %s: %w", key, err)
	}
	return value, nil
}

// Set stores encoded rows. A zero ttl uses the default; a negative one never
// expires.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("caching rows %s: %w", key, err)
	}
	return nil
}

// Delete drops the rows of one statement
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("dropping cached rows %s: %w", key, err)
	}
	return nil
}

// Clear drops every statement under the prefix, one SCAN page at a time.
// Keys outside the prefix are left alone.
func (r *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key("*"), clearBatch).Result()
		if err != nil {
			return fmt.Errorf("scanning statement cache: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clearing statement cache: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Exists reports whether rows are cached under key
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("checking cached rows %s: %w", key, err)
	}
	return count > 0, nil
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
