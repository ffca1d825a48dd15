package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Pair  string  `json:"pair"`
	Score float64 `json:"score"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", payload{Pair: "BTC/EUR", Score: 30}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, payload{Pair: "BTC/EUR", Score: 30}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain text", time.Minute))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain text", s)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(time.Millisecond)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "a", "c")
	assert.True(t, ok)
}

func TestMemoryCacheDeleteByPatternAndLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, GenerateKey("signals:latest", "BTC/EUR"), "x", 0))
	require.NoError(t, mc.Set(ctx, "learning:digest", "y", 0))
	require.NoError(t, mc.DeleteByPattern(ctx, "signals:*"))

	ok, _ := mc.Exists(ctx, "signals:latest:BTC/EUR")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "learning:digest")
	assert.True(t, ok)

	locked, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
	locked, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, locked)
	require.NoError(t, mc.Unlock(ctx, "lock"))

	n, err := mc.Increment(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, _ = mc.Increment(ctx, "hits")
	assert.Equal(t, int64(2), n)
}
