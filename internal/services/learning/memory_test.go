package learning

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	"CryptoEdge/internal/repository"
	"CryptoEdge/pkg/cache"
	"CryptoEdge/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func fixedClock() time.Time { return t0.Add(48 * time.Hour) }

func newMemory(t *testing.T, store *repository.MemoryStore, opts ...Option) *Memory {
	t.Helper()
	opts = append([]Option{WithPath(filepath.Join(t.TempDir(), "learning", "digest.md")), WithClock(fixedClock)}, opts...)
	return NewMemory(store, store, logger.Nop(), opts...)
}

func trade(pair string, dir models.Direction, pnl float64, entry time.Duration) models.ClosedTrade {
	return models.ClosedTrade{
		Pair:      pair,
		Direction: dir,
		PnL:       pnl,
		EntryTime: t0.Add(entry),
		ClosedAt:  t0.Add(entry + time.Hour),
	}
}

func TestRebuildWithoutTradesWritesPlaceholder(t *testing.T) {
	m := newMemory(t, repository.NewMemoryStore())

	d, err := m.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, placeholderDigest, d.Text)
	assert.Equal(t, placeholderDigest, m.Context())

	b, err := os.ReadFile(m.path)
	require.NoError(t, err)
	assert.Equal(t, placeholderDigest, string(b))
}

func TestRebuildReportsWinRates(t *testing.T) {
	store := repository.NewMemoryStore()
	for i := 0; i < 7; i++ {
		store.AddClosedTrade(trade("BTC/EUR", models.DirectionLong, 10, time.Duration(i)*time.Hour))
	}
	for i := 0; i < 3; i++ {
		store.AddClosedTrade(trade("ETH/EUR", models.DirectionLong, -5, time.Duration(i)*time.Hour))
	}

	m := newMemory(t, store)
	d, err := m.Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, d.TotalTrades)
	assert.InDelta(t, 70, d.Overall.WinRate(), 1e-9)
	assert.InDelta(t, 100, models.BucketByName(d.ByPair, "BTC/EUR").WinRate(), 1e-9)
	assert.InDelta(t, 0, models.BucketByName(d.ByPair, "ETH/EUR").WinRate(), 1e-9)
	assert.Contains(t, d.Text, "Win rate: 70.0% (7W / 3L)")
	assert.Contains(t, d.Text, "Total P&L: +55.00")
	assert.Len(t, d.Recent, recentTrades)
	assert.Contains(t, d.Text, noLessons)
}

func TestRebuildJoinsSignalActiveAtEntry(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, err := store.Persist(ctx, &models.Signal{Pair: "BTC/EUR", Confidence: 80, RSI: fptr(25), CreatedAt: t0})
	require.NoError(t, err)
	_, err = store.Persist(ctx, &models.Signal{Pair: "BTC/EUR", Confidence: 40, RSI: fptr(75), CreatedAt: t0.Add(10 * time.Hour)})
	require.NoError(t, err)

	store.AddClosedTrade(trade("BTC/EUR", models.DirectionLong, 3, 2*time.Hour))
	// entered before any signal existed: falls back to its own confidence, no RSI
	early := trade("BTC/EUR", models.DirectionShort, -1, -time.Hour)
	early.Confidence = fptr(55)
	store.AddClosedTrade(early)

	d, err := newMemory(t, store).Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, models.BucketByName(d.ByRSIZone, zoneOversold).Trades)
	assert.Zero(t, models.BucketByName(d.ByRSIZone, zoneOverbought).Trades)
	assert.Equal(t, 1, models.BucketByName(d.ByConfidence, confidenceHigh).Trades)
	assert.Equal(t, 1, models.BucketByName(d.ByConfidence, confidenceMid).Trades)
}

func TestDeriveLessons(t *testing.T) {
	tests := []struct {
		name string
		d    models.Digest
		want []string
	}{
		{
			name: "long beats short",
			d: models.Digest{ByDirection: []models.Bucket{
				{Name: "long", Trades: 4, Wins: 3},
				{Name: "short", Trades: 4, Wins: 1},
			}},
			want: []string{"LONG signals significantly outperform SHORT (75% vs 25%)"},
		},
		{
			name: "direction needs samples on both sides",
			d: models.Digest{ByDirection: []models.Bucket{
				{Name: "long", Trades: 5, Wins: 5},
				{Name: "short", Trades: 2, Wins: 0},
			}},
		},
		{
			name: "overconfident",
			d:    models.Digest{ByConfidence: []models.Bucket{{Name: confidenceHigh, Trades: 4, Wins: 1}}},
			want: []string{"Model is overconfident"},
		},
		{
			name: "trusted high confidence",
			d:    models.Digest{ByConfidence: []models.Bucket{{Name: confidenceHigh, Trades: 4, Wins: 3}}},
			want: []string{"Trust them"},
		},
		{
			name: "oversold reversals",
			d:    models.Digest{ByRSIZone: []models.Bucket{{Name: zoneOversold, Trades: 3, Wins: 3}}},
			want: []string{"Good reversal signals"},
		},
		{
			name: "oversold knives",
			d:    models.Digest{ByRSIZone: []models.Bucket{{Name: zoneOversold, Trades: 3, Wins: 0}}},
			want: []string{"avoid"},
		},
		{
			name: "too few oversold samples",
			d:    models.Digest{ByRSIZone: []models.Bucket{{Name: zoneOversold, Trades: 2, Wins: 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveLessons(&tt.d)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Contains(t, got[i], w)
			}
		})
	}
}

func TestConfidenceBuckets(t *testing.T) {
	assert.Equal(t, confidenceLow, confidenceBucket(49.9))
	assert.Equal(t, confidenceMid, confidenceBucket(50))
	assert.Equal(t, confidenceMid, confidenceBucket(70))
	assert.Equal(t, confidenceHigh, confidenceBucket(70.1))
}

type failingFeed struct{ err error }

func (f failingFeed) ClosedTrades(context.Context) ([]models.ClosedTrade, error) { return nil, f.err }

func TestFailedRebuildKeepsPreviousDigest(t *testing.T) {
	store := repository.NewMemoryStore()
	store.AddClosedTrade(trade("BTC/EUR", models.DirectionLong, 1, 0))
	m := newMemory(t, store)

	first, err := m.Rebuild(context.Background())
	require.NoError(t, err)

	m.trades = failingFeed{err: errors.New("db gone")}
	_, err = m.Rebuild(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, first.Text, m.Context())

	b, err := os.ReadFile(m.path)
	require.NoError(t, err)
	assert.Equal(t, first.Text, string(b))
}

func TestContextFallbacks(t *testing.T) {
	t.Run("reads file written by another process", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "digest.md")
		require.NoError(t, os.WriteFile(path, []byte("# from disk\n"), 0o644))
		m := NewMemory(repository.NewMemoryStore(), repository.NewMemoryStore(), logger.Nop(), WithPath(path))
		assert.Equal(t, "# from disk\n", m.Context())
	})

	t.Run("reads cache mirror", func(t *testing.T) {
		c := cache.NewMemoryCache()
		defer c.Close()
		require.NoError(t, c.Set(context.Background(), cacheKey, "# from cache\n", time.Minute))

		m := NewMemory(repository.NewMemoryStore(), repository.NewMemoryStore(), logger.Nop(),
			WithPath(filepath.Join(t.TempDir(), "missing.md")), WithCache(c))
		assert.Equal(t, "# from cache\n", m.Context())
	})

	t.Run("empty when nothing exists", func(t *testing.T) {
		m := NewMemory(repository.NewMemoryStore(), repository.NewMemoryStore(), logger.Nop(),
			WithPath(filepath.Join(t.TempDir(), "missing.md")))
		assert.Empty(t, m.Context())
	})
}

func TestRenderSections(t *testing.T) {
	d := buildDigest([]joinedTrade{
		{ClosedTrade: trade("BTC/EUR", models.DirectionLong, 4.5, 0), SignalRSI: fptr(28)},
		{ClosedTrade: trade("BTC/EUR", "", -2, time.Hour)},
	}, t0)
	text := render(d)

	for _, section := range []string{
		"## Overall Performance",
		"## Performance by Pair",
		"## Performance by Direction",
		"## Performance by RSI Zone at Entry",
		"## Recent Trades (last 2)",
		"## Key Lessons (auto-derived)",
	} {
		assert.Contains(t, text, section)
	}
	assert.Contains(t, text, "- LONG: 50% win rate (1W/1L)")
	assert.Contains(t, text, "RSI: ?")
	assert.True(t, strings.HasPrefix(text, "# Agent Learning Memory\n"))
}
