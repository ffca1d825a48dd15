package usecase

import (
	"context"
	"errors"
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

func longAnalysis() *models.Analysis {
	return &models.Analysis{
		Direction:       models.DirectionLong,
		Confidence:      72,
		MarketSentiment: models.SentimentBullish,
		RiskLevel:       models.RiskMedium,
		Analysis:        "Uptrend intact with expanding liquidity.",
		KeyFactors:      []string{"EMA stack bullish"},
		LongScore:       ptr(70),
		ShortScore:      ptr(20),
		ModelVersion:    "test-model",
	}
}

const longReply = "```json\n" + `{"direction":"long","confidence":72,"market_sentiment":"bullish",` +
	`"risk_level":"medium","analysis":"Uptrend intact with expanding liquidity.",` +
	`"key_factors":["EMA stack bullish"],"long_score":70,"short_score":20}` + "\n```"

func TestGenerateSignalEndToEnd(t *testing.T) {
	store := repository.NewMemoryStore()
	c := cache.NewMemoryCache()
	defer c.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gen := NewSignalGenerator(
		&stubMarket{candles: uptrend(60)},
		stubLiquidity{lc: &models.LiquidityContext{Score: 30, Trend: models.LiquidityExpanding}},
		&stubReasoner{available: true, raw: longReply},
		store,
		nopMetrics{},
		logger.Nop(),
		GeneratorConfig{LatestTTL: time.Minute},
		WithLatestCache(c),
		WithGeneratorClock(func() time.Time { return now }),
	)

	sig, err := gen.GenerateSignal(context.Background(), "BTC/EUR")
	require.NoError(t, err)
	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, "expanding (score +30)", sig.LiquidityAssessment)
	require.NotNil(t, sig.RSI)

	hist, err := store.History(context.Background(), "BTC/EUR", 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.DirectionLong, hist[0].Direction)
	assert.InDelta(t, 72.0, hist[0].Confidence, 1e-9)
	assert.Equal(t, sig.ID, hist[0].ID)
	require.NotNil(t, hist[0].LongScore)
	assert.InDelta(t, 70.0, *hist[0].LongScore, 1e-9)

	var cached models.Signal
	require.NoError(t, c.Get(context.Background(), latestKey("BTC/EUR"), &cached))
	assert.Equal(t, sig.ID, cached.ID)
}

func TestGenerateSignalFailures(t *testing.T) {
	tests := []struct {
		name     string
		market   *stubMarket
		reasoner *stubReasoner
		want     error
	}{
		{
			name:     "short history",
			market:   &stubMarket{candles: uptrend(10)},
			reasoner: &stubReasoner{available: true, analysis: longAnalysis()},
			want:     domain.ErrInsufficientHistory,
		},
		{
			name:     "exchange down",
			market:   &stubMarket{err: errors.New("dial tcp: refused")},
			reasoner: &stubReasoner{available: true, analysis: longAnalysis()},
			want:     domain.ErrUpstreamFetch,
		},
		{
			name:     "reasoning timeout",
			market:   &stubMarket{candles: uptrend(60)},
			reasoner: &stubReasoner{available: true, err: domain.ErrReasoningTimeout},
			want:     domain.ErrReasoningTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryStore()
			gen := NewSignalGenerator(tt.market, stubLiquidity{}, tt.reasoner, store, nopMetrics{}, logger.Nop(), GeneratorConfig{})

			_, err := gen.GenerateSignal(context.Background(), "ETH/EUR")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			_, err = store.Latest(context.Background(), "ETH/EUR")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestGenerateSignalStorageFailure(t *testing.T) {
	store := newFailingStore("ETH/EUR")
	c := cache.NewMemoryCache()
	defer c.Close()

	gen := NewSignalGenerator(
		&stubMarket{candles: uptrend(60)},
		stubLiquidity{},
		&stubReasoner{available: true, analysis: longAnalysis()},
		store,
		nopMetrics{},
		logger.Nop(),
		GeneratorConfig{LatestTTL: time.Minute},
		WithLatestCache(c),
	)
	ctx := context.Background()

	_, err := gen.GenerateSignal(ctx, "ETH/EUR")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, "storage", errorKind(err))

	var cached models.Signal
	assert.ErrorIs(t, c.Get(ctx, latestKey("ETH/EUR"), &cached), cache.ErrCacheMiss)

	sig, err := gen.GenerateSignal(ctx, "BTC/EUR")
	require.NoError(t, err)
	require.NoError(t, c.Get(ctx, latestKey("BTC/EUR"), &cached))
	assert.Equal(t, sig.ID, cached.ID)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "storage", errorKind(errors.Join(domain.ErrStorage)))
	assert.Equal(t, "deadline", errorKind(context.DeadlineExceeded))
	assert.Equal(t, "unknown", errorKind(errors.New("boom")))
}
