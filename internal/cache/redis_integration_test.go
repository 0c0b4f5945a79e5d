//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) *RedisCache {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}
	rdb, err := Connect(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, "test:"+uuid.NewString()+":")
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	var got []float32
	hit, err := c.GetJSON(ctx, "vec", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "vec", []float32{0.5, 0.25}, time.Minute))

	hit, err = c.GetJSON(ctx, "vec", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []float32{0.5, 0.25}, got)

	require.NoError(t, c.Del(ctx, "vec"))
	hit, err = c.GetJSON(ctx, "vec", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.rdb.Set(ctx, c.key("bad"), "{not json", time.Minute).Err())

	var got map[string]any
	hit, err := c.GetJSON(ctx, "bad", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
