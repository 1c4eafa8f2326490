package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCacheFromClient(client, DefaultCacheConfig())
	t.Cleanup(func() {
		_ = cache.Close()
		mr.Close()
	})
	return cache, mr
}

func TestNewRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache, err := NewRedisCache(RedisConfig{
		Addr:        mr.Addr(),
		CacheConfig: DefaultCacheConfig(),
	})
	require.NoError(t, err)
	defer cache.Close()
}

func TestNewRedisCache_ConnectionError(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{
		Addr:        "localhost:99999",
		PingTimeout: time.Second,
		CacheConfig: DefaultCacheConfig(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement cache unreachable at localhost:99999")
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", []byte("value"), time.Minute))
	assert.True(t, mr.Exists("graphorm:key"))

	got, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	_, err = cache.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCache_TTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "default", []byte("v"), 0))
	require.NoError(t, cache.Set(ctx, "forever", []byte("v"), -1))

	assert.Equal(t, time.Minute, mr.TTL("graphorm:default"))
	assert.Zero(t, mr.TTL("graphorm:forever"))

	mr.FastForward(2 * time.Minute)

	exists, err := cache.Exists(ctx, "default")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = cache.Exists(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRedisCache_ClearKeepsForeignKeys(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "x"))
	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, cache.Delete(ctx, "b"))
	assert.False(t, mr.Exists("graphorm:b"))

	require.NoError(t, cache.Clear(ctx))

	assert.False(t, mr.Exists("graphorm:a"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_ClearSpansScanPages(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < clearBatch*2+7; i++ {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("stmt:%04d", i), []byte("rows"), 0))
	}
	require.NoError(t, mr.Set("other:key", "x"))

	require.NoError(t, cache.Clear(ctx))

	assert.Equal(t, []string{"other:key"}, mr.Keys())
}

func TestRedisCache_ErrorsNameTheKey(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.SetError("server down")

	_, err := cache.Get(context.Background(), "stmt:1")
	require.Error(t, err)
	assert.False(t, IsCacheMiss(err))
	assert.Contains(t, err.Error(), "reading cached rows stmt:1")

	mr.SetError("")
}

func TestNewBackend(t *testing.T) {
	c, err := New(BackendMemory, DefaultCacheConfig(), RedisConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	require.NoError(t, c.Close())

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err = New(BackendRedis, DefaultCacheConfig(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.Close())

	_, err = New("memcached", DefaultCacheConfig(), RedisConfig{})
	assert.EqualError(t, err, `unknown cache backend: "memcached"`)
}
