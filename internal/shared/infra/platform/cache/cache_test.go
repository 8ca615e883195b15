package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type item struct {
	Name string `json:"name"`
}

func TestInMemoryCache_GetSetExpire(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewInMemoryCache(time.Minute, 0, clock)

	var got item
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", item{Name: "ana"}, 0))
	hit, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "ana", got.Name)

	clock.Advance(time.Minute)
	hit, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit, "expirado")
}

func TestInMemoryCache_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewInMemoryCache(time.Minute, 0, clock)

	ok, err := c.SetIfAbsent(ctx, "msg-1", true, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetIfAbsent(ctx, "msg-1", true, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(11 * time.Second)
	ok, err = c.SetIfAbsent(ctx, "msg-1", true, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryCache_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := NewInMemoryCache(time.Second, 0, clock)

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, time.Hour))
	require.NoError(t, c.Delete(ctx, "b"))

	clock.Advance(2 * time.Second)
	c.purgeExpired()

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Empty(t, c.store)
}

func TestCacheHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute, 0, nil)
	defer c.Stop()

	AsyncCacheSet(ctx, c, "user:1", item{Name: "luis"}, 0, zap.NewNop())
	assert.Eventually(t, func() bool {
		var got item
		hit, _ := c.Get(ctx, "user:1", &got)
		return hit && got.Name == "luis"
	}, time.Second, 5*time.Millisecond)

	CacheDelete(ctx, c, "user:1", zap.NewNop())
	var got item
	hit, err := c.Get(ctx, "user:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	// nil no hace nada
	AsyncCacheSet(ctx, nil, "x", 1, 0, zap.NewNop())
	CacheDelete(ctx, nil, "x", zap.NewNop())
}

func TestRedisCache_UnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache(client, time.Minute, "hexashop:")

	ctx := context.Background()
	assert.Error(t, c.Ping(ctx))
	_, err := c.Get(ctx, "k", &item{})
	assert.Error(t, err)
	assert.Equal(t, "hexashop:k", c.key("k"))
}
