package liquidity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoEdge/internal/domain/models"
	"CryptoEdge/pkg/cache"
	"CryptoEdge/pkg/logger"
)

const globalPayload = `{"data":{
	"total_market_cap":{"usd":2500000000000},
	"total_volume":{"usd":125000000000},
	"market_cap_change_percentage_24h_usd":5,
	"market_cap_percentage":{"btc":50}
}}`

type fakeUpstream struct {
	calls  atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func newUpstream(t *testing.T) (*fakeUpstream, *httptest.Server) {
	u := &fakeUpstream{}
	u.status.Store(http.StatusOK)
	u.body.Store(globalPayload)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		u.calls.Add(1)
		w.WriteHeader(int(u.status.Load()))
		_, _ = w.Write([]byte(u.body.Load().(string)))
	}))
	t.Cleanup(srv.Close)
	return u, srv
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(srv *httptest.Server, clk *clock, opts ...Option) *Service {
	base := []Option{WithURL(srv.URL), WithTTL(5 * time.Minute), WithTimeout(time.Second), WithClock(clk.now)}
	return NewService(logger.Nop(), append(base, opts...)...)
}

func TestFetchServesCacheWithinTTL(t *testing.T) {
	up, srv := newUpstream(t)
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(srv, clk)

	first := svc.Fetch(context.Background())
	require.NotNil(t, first)
	assert.Equal(t, 30, first.Score)
	assert.Equal(t, models.LiquidityExpanding, first.Trend)

	clk.advance(4 * time.Minute)
	second := svc.Fetch(context.Background())
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, up.calls.Load())

	clk.advance(2 * time.Minute)
	third := svc.Fetch(context.Background())
	require.NotNil(t, third)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, up.calls.Load())
}

func TestFetchServesStaleOnFailure(t *testing.T) {
	up, srv := newUpstream(t)
	clk := &clock{t: time.Now()}
	svc := newTestService(srv, clk)

	good := svc.Fetch(context.Background())
	require.NotNil(t, good)

	up.status.Store(http.StatusTooManyRequests)
	clk.advance(10 * time.Minute)
	assert.Same(t, good, svc.Fetch(context.Background()))
	assert.EqualValues(t, 2, up.calls.Load())

	up.status.Store(http.StatusOK)
	up.body.Store(`{"data": not json`)
	clk.advance(10 * time.Minute)
	assert.Same(t, good, svc.Fetch(context.Background()))
}

func TestFetchColdCacheFailureReturnsNil(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"missing data", http.StatusOK, `{"status":"ok"}`},
		{"malformed", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, srv := newUpstream(t)
			up.status.Store(int32(tt.status))
			up.body.Store(tt.body)

			svc := newTestService(srv, &clock{t: time.Now()})
			assert.Nil(t, svc.Fetch(context.Background()))
		})
	}
}

func TestFetchWarmStartsFromMirror(t *testing.T) {
	up, srv := newUpstream(t)
	clk := &clock{t: time.Now()}
	mc := cache.NewMemoryCache()
	defer mc.Close()

	first := newTestService(srv, clk, WithCache(mc)).Fetch(context.Background())
	require.NotNil(t, first)

	clk.advance(time.Minute)
	restarted := newTestService(srv, clk, WithCache(mc))
	got := restarted.Fetch(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, first.Score, got.Score)
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name                   string
		change, dom, mcap, vol float64
		want                   int
		trend                  models.LiquidityTrend
	}{
		{"momentum only", 3, 50, 1000, 50, 18, models.LiquidityExpanding},
		{"crash clamps", -20, 50, 100, 5, -60, models.LiquidityContracting},
		{"high dominance", 0, 60, 100, 5, -8, models.LiquidityNeutral},
		{"no market cap uses baseline", 0, 50, 0, 0, 0, models.LiquidityNeutral},
		{"everything saturates", 10, 20, 100, 20, 100, models.LiquidityExpanding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeScore(tt.change, tt.dom, tt.mcap, tt.vol)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.trend, TrendFor(got))
		})
	}
}

func TestTrendThresholds(t *testing.T) {
	assert.Equal(t, models.LiquidityNeutral, TrendFor(15))
	assert.Equal(t, models.LiquidityExpanding, TrendFor(16))
	assert.Equal(t, models.LiquidityNeutral, TrendFor(-15))
	assert.Equal(t, models.LiquidityContracting, TrendFor(-16))
	assert.Equal(t, "expanding (score +30)", Assessment(&models.LiquidityContext{Score: 30, Trend: models.LiquidityExpanding}))
	assert.Equal(t, "", Assessment(nil))
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{-15.5, -15},
		{-15.51, -16},
		{15.5, 16},
		{-0.5, 0},
		{-16.4, -16},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundHalfUp(tt.in), "%v", tt.in)
	}
	assert.Equal(t, models.LiquidityNeutral, TrendFor(roundHalfUp(-15.5)))
}

func TestFetchColdStartWaitsForFirstRefresh(t *testing.T) {
	entered := make(chan struct{})
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		once.Do(func() { close(entered) })
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(globalPayload))
	}))
	t.Cleanup(srv.Close)
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(srv, clk)

	first := make(chan *models.LiquidityContext, 1)
	go func() { first <- svc.Fetch(context.Background()) }()
	<-entered

	second := svc.Fetch(context.Background())
	require.NotNil(t, second)
	got := <-first
	require.NotNil(t, got)
	assert.Equal(t, got.Score, second.Score)
}
