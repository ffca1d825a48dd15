package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	"CryptoEdge/internal/service/ratelimit"
	xhttp "CryptoEdge/pkg/http"
	xlogger "CryptoEdge/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuery struct {
	latest    map[string]*models.Signal
	lastLimit int
	healthErr error
}

func (f *fakeQuery) Pairs() []string { return []string{"BTC/EUR", "ETH/EUR"} }

func (f *fakeQuery) GetLatest(_ context.Context, pair string) (*models.Signal, error) {
	if s, ok := f.latest[pair]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeQuery) GetLatestAll(context.Context) (map[string]*models.Signal, error) {
	out := map[string]*models.Signal{}
	for _, p := range f.Pairs() {
		out[p] = f.latest[p]
	}
	return out, nil
}

func (f *fakeQuery) GetHistory(_ context.Context, pair string, limit int) ([]*models.Signal, error) {
	f.lastLimit = limit
	if s, ok := f.latest[pair]; ok {
		return []*models.Signal{s}, nil
	}
	return []*models.Signal{}, nil
}

func (f *fakeQuery) GetLearningDigestText() string { return "# Agent Learning Memory\n" }

func (f *fakeQuery) RebuildLearning(context.Context) (string, error) {
	return "# rebuilt\n", nil
}

func (f *fakeQuery) Health(context.Context) error { return f.healthErr }

type fakeGeneration struct {
	refreshErr error
	running    bool
	generated  string
}

func (f *fakeGeneration) RefreshNow(context.Context) ([]*models.Signal, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return []*models.Signal{{Pair: "BTC/EUR"}}, nil
}

func (f *fakeGeneration) GenerateOne(_ context.Context, pair string) (*models.Signal, error) {
	f.generated = pair
	return &models.Signal{Pair: pair}, nil
}

func (f *fakeGeneration) Running() bool { return f.running }

type fakeLiquidity struct{ lc *models.LiquidityContext }

func (f fakeLiquidity) Fetch(context.Context) *models.LiquidityContext { return f.lc }

type fakeReasoner struct{}

func (fakeReasoner) Available() bool { return true }

func (fakeReasoner) Analyze(context.Context, string, *models.MarketData) (*models.Analysis, error) {
	return nil, errors.New("not used")
}

type fixture struct {
	e     *echo.Echo
	query *fakeQuery
	gen   *fakeGeneration
}

func newFixture(t *testing.T, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	q := &fakeQuery{latest: map[string]*models.Signal{
		"BTC/EUR": {ID: "sig-1", Pair: "BTC/EUR", Direction: models.DirectionLong, Confidence: 72},
	}}
	g := &fakeGeneration{}
	h := NewSignalsEchoHandler(xlogger.Nop(), q, g,
		fakeLiquidity{lc: &models.LiquidityContext{Score: 30, Trend: models.LiquidityExpanding}},
		fakeReasoner{}, nil, limiter)
	e := echo.New()
	h.RegisterRoutes(e)
	return &fixture{e: e, query: q, gen: g}
}

func (f *fixture) do(method, target string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestLatestRoutes(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"dash form", "/api/signals/latest/BTC-EUR", http.StatusOK},
		{"escaped slash", "/api/signals/latest/BTC%2FEUR", http.StatusOK},
		{"lowercase", "/api/signals/latest/btc-eur", http.StatusOK},
		{"no signal yet", "/api/signals/latest/ETH-EUR", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.code, body.Status)
		})
	}

	rec, _ := f.do(http.MethodGet, "/api/signals/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ETH/EUR":null`)
	assert.Contains(t, rec.Body.String(), `"sig-1"`)
}

func TestHistoryLimitValidation(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(http.MethodGet, "/api/signals/history/BTC-EUR")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, f.query.lastLimit)
	assert.Contains(t, rec.Body.String(), `"pair":"BTC/EUR"`)

	rec, _ = f.do(http.MethodGet, "/api/signals/history/BTC-EUR?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.query.lastLimit)

	rec, _ = f.do(http.MethodGet, "/api/signals/history/BTC-EUR?limit=501")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		errCode  string
		mustSkip string
	}{
		{"ok", nil, http.StatusOK, "", ""},
		{"in progress", domain.ErrGenerationInProgress, http.StatusConflict, "ERR_CONFLICT", ""},
		{"reasoning unavailable", domain.ErrReasoningUnavailable, http.StatusServiceUnavailable, "ERR_UNAVAILABLE", ""},
		{"no signals", domain.ErrNoSignals, http.StatusServiceUnavailable, "ERR_UNAVAILABLE", ""},
		{"internal detail hidden", errors.New("pq: relation signals missing"), http.StatusInternalServerError, "ERR_INTERNAL", "relation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.gen.refreshErr = tt.err

			rec, _ := f.do(http.MethodPost, "/api/signals/refresh")
			assert.Equal(t, tt.code, rec.Code)
			if tt.errCode != "" {
				assert.Contains(t, rec.Body.String(), tt.errCode)
			}
			if tt.mustSkip != "" {
				assert.NotContains(t, rec.Body.String(), tt.mustSkip)
			}
		})
	}
}

func TestRefreshRateLimited(t *testing.T) {
	f := newFixture(t, ratelimit.New(1, 1))

	rec, _ := f.do(http.MethodPost, "/api/signals/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(http.MethodPost, "/api/signals/refresh")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_TOO_MANY_REQUESTS")
}

func TestGenerateOnlyConfiguredPairs(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(http.MethodPost, "/api/signals/generate/eth-eur")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETH/EUR", f.gen.generated)

	rec, _ = f.do(http.MethodPost, "/api/signals/generate/DOGE-EUR")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLearningAndLiquidity(t *testing.T) {
	f := newFixture(t, nil)

	rec, _ := f.do(http.MethodGet, "/api/signals/learning")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"digest":"# Agent Learning Memory\n"`)

	rec, _ = f.do(http.MethodPost, "/api/signals/learning/rebuild")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# rebuilt")

	rec, _ = f.do(http.MethodGet, "/api/market/liquidity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"liquidityScore":30`)
}

func TestLiquidityColdCache(t *testing.T) {
	h := NewSignalsEchoHandler(xlogger.Nop(), &fakeQuery{}, &fakeGeneration{}, fakeLiquidity{}, fakeReasoner{}, nil, nil)
	e := echo.New()
	h.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market/liquidity", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.running = true

	rec, _ := f.do(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"generation_active":true`)

	f.query.healthErr = errors.New("dial tcp: refused")
	rec, _ = f.do(http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"down"`)
}

func TestSystemErrors(t *testing.T) {
	f := newFixture(t, nil)
	rec, _ := f.do(http.MethodGet, "/api/system/errors?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)

	rec, _ = f.do(http.MethodGet, "/api/system/errors?limit=1000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
