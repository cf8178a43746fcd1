package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglebank/accounts/internal/logger"
)

type testView struct {
	Name string `json:"name"`
}

// Runs only when TEST_REDIS_ADDR points at a disposable Redis.
func newTestCache(t *testing.T) (*ViewCache[testView], string) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb, err := NewClient(context.Background(), Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	key := "test:view:{" + uuid.NewString() + "}"
	t.Cleanup(func() { rdb.Del(context.Background(), key, versionKey(key)) })
	return NewViewCache[testView](rdb, time.Minute, logger.Nop()), key
}

func TestViewCacheFillAndInvalidate(t *testing.T) {
	cache, key := newTestCache(t)
	ctx := context.Background()

	version, ok := cache.Version(ctx, key)
	require.True(t, ok)
	assert.Zero(t, version)

	assert.True(t, cache.SetIfVersion(ctx, key, version, &testView{Name: "Madan Reddy"}))
	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "Madan Reddy", got.Name)

	cache.Invalidate(ctx, key)
	_, ok = cache.Get(ctx, key)
	assert.False(t, ok)
	version, ok = cache.Version(ctx, key)
	require.True(t, ok)
	assert.Equal(t, int64(1), version)
}

func TestViewCacheRefusesFillAfterInvalidate(t *testing.T) {
	cache, key := newTestCache(t)
	ctx := context.Background()

	before, ok := cache.Version(ctx, key)
	require.True(t, ok)
	cache.Invalidate(ctx, key)

	assert.False(t, cache.SetIfVersion(ctx, key, before, &testView{Name: "stale"}))
	_, ok = cache.Get(ctx, key)
	assert.False(t, ok)
}
