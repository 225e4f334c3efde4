package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "handoff:")
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	_, ok, err := c.Load(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, "x", "reply"))
	body, ok, err := c.Load(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "reply", body)

	loc, err := c.Locate("x")
	require.NoError(t, err)
	assert.Equal(t, "handoff:"+EntryName(Key("x")), loc)

	stored, err := mr.Get(loc)
	require.NoError(t, err)
	assert.Equal(t, "reply", stored)
	assert.Zero(t, mr.TTL(loc), "entries must not expire")
}

func TestRedisCacheLoadError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	defer c.Close()
	mr.Close()

	_, _, err = c.Load(context.Background(), "x")
	assert.Error(t, err)
}
