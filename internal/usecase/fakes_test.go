package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"CryptoEdge/internal/domain/models"
	"CryptoEdge/internal/repository"
	"CryptoEdge/internal/services/reasoning"
)

type stubMarket struct {
	candles []models.Candle
	err     error
}

func (m *stubMarket) FetchCandles(context.Context, string, int) ([]models.Candle, error) {
	return m.candles, m.err
}

func (m *stubMarket) FetchTicker(_ context.Context, pair string) (*models.Ticker, error) {
	if m.err != nil {
		return nil, m.err
	}
	last := m.candles[len(m.candles)-1]
	return &models.Ticker{Pair: pair, Price: last.Close, Open24h: m.candles[0].Close}, nil
}

func (m *stubMarket) FetchOrderBook(context.Context, string, int) (*models.OrderBook, error) {
	if m.err != nil {
		return nil, m.err
	}
	last := m.candles[len(m.candles)-1].Close
	return &models.OrderBook{
		Bids: []models.BookLevel{{Price: last - 1, Volume: 2}},
		Asks: []models.BookLevel{{Price: last + 1, Volume: 1}},
	}, nil
}

type stubLiquidity struct{ lc *models.LiquidityContext }

func (s stubLiquidity) Fetch(context.Context) *models.LiquidityContext { return s.lc }

// stubReasoner answers with analysis, or with the model reply raw run
// through the same parser the real client uses.
type stubReasoner struct {
	available bool
	analysis  *models.Analysis
	raw       string
	err       error
}

func (r *stubReasoner) Available() bool { return r.available }

func (r *stubReasoner) Analyze(context.Context, string, *models.MarketData) (*models.Analysis, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.raw != "" {
		return reasoning.ParseAnalysis(r.raw)
	}
	cp := *r.analysis
	return &cp, nil
}

// failingStore rejects writes for the listed pairs.
type failingStore struct {
	*repository.MemoryStore
	failing map[string]bool
}

func newFailingStore(pairs ...string) *failingStore {
	f := &failingStore{MemoryStore: repository.NewMemoryStore(), failing: make(map[string]bool)}
	for _, p := range pairs {
		f.failing[p] = true
	}
	return f
}

func (f *failingStore) Persist(ctx context.Context, s *models.Signal) (string, error) {
	if f.failing[s.Pair] {
		return "", errors.New("connection reset by peer")
	}
	return f.MemoryStore.Persist(ctx, s)
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string)                    {}
func (nopMetrics) RecordSignal(string, models.Direction) {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLatency(string, float64)         {}
func (nopMetrics) RecordConfidence(string, float64)      {}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*Broadcast
}

func (p *capturePublisher) Publish(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, payload.(*Broadcast))
	return nil
}

func (p *capturePublisher) all() []*Broadcast {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Broadcast(nil), p.msgs...)
}

// uptrend builds n hourly candles with steadily rising closes and a small
// pullback every fourth bar so RSI stays below saturation.
func uptrend(n int) []models.Candle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	price := 40000.0
	for i := range out {
		if i%4 == 3 {
			price -= 60
		} else {
			price += 100
		}
		out[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   price - 50,
			High:   price + 80,
			Low:    price - 120,
			Close:  price,
			VWAP:   price - 10,
			Volume: 10 + float64(i%5),
			Count:  100,
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
