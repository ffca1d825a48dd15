package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/internal/services/indicators"
	"CryptoEdge/internal/services/liquidity"
	"CryptoEdge/pkg/cache"
	"CryptoEdge/pkg/logger"

	"github.com/google/uuid"
)

const latestKeyPrefix = "signals:latest"

func latestKey(pair string) string { return cache.GenerateKey(latestKeyPrefix, pair) }

type GeneratorConfig struct {
	Timeframe      domrepo.Timeframe
	OrderBookDepth int
	LatestTTL      time.Duration // cache lifetime of signals:latest:<pair>
}

type GeneratorOption func(*SignalGenerator)

func WithLatestCache(c cache.Service) GeneratorOption {
	return func(g *SignalGenerator) { g.cache = c }
}

func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *SignalGenerator) { g.now = now }
}

// SignalGenerator runs the per-pair pipeline: market data, indicators,
// liquidity context, reasoning, persistence.
type SignalGenerator struct {
	market    domrepo.MarketData
	liquidity domsvc.LiquiditySource
	reasoner  domsvc.Reasoner
	store     domrepo.SignalStore
	metrics   domrepo.Metrics
	cache     cache.Service
	cfg       GeneratorConfig
	log       *logger.Logger
	now       func() time.Time
}

func NewSignalGenerator(
	market domrepo.MarketData,
	liq domsvc.LiquiditySource,
	reasoner domsvc.Reasoner,
	store domrepo.SignalStore,
	metrics domrepo.Metrics,
	log *logger.Logger,
	cfg GeneratorConfig,
	opts ...GeneratorOption,
) *SignalGenerator {
	if cfg.OrderBookDepth <= 0 {
		cfg.OrderBookDepth = 10
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = domrepo.DefaultTimeframe()
	}
	g := &SignalGenerator{
		market:    market,
		liquidity: liq,
		reasoner:  reasoner,
		store:     store,
		metrics:   metrics,
		cfg:       cfg,
		log:       log.With(logger.Category("SIGNAL")),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateSignal produces and persists one signal for pair.
func (g *SignalGenerator) GenerateSignal(ctx context.Context, pair string) (*models.Signal, error) {
	start := g.now()
	sig, err := g.generate(ctx, pair)
	g.metrics.RecordLatency("generate_signal", g.now().Sub(start).Seconds())
	if err != nil {
		g.metrics.RecordError(errorKind(err))
		g.log.Warn("signal generation failed", logger.String("pair", pair), logger.Error(err))
		return nil, err
	}

	g.metrics.RecordSignal(pair, sig.Direction)
	g.metrics.RecordConfidence(pair, sig.Confidence)
	g.log.Info("signal generated",
		logger.String("pair", pair),
		logger.String("id", sig.ID),
		logger.String("direction", string(sig.Direction)),
		logger.Float64("confidence", sig.Confidence),
		logger.Duration("took_ms", g.now().Sub(start)))
	return sig, nil
}

func (g *SignalGenerator) generate(ctx context.Context, pair string) (*models.Signal, error) {
	candles, err := g.market.FetchCandles(ctx, pair, g.cfg.Timeframe.Minutes())
	if err != nil {
		return nil, upstream("candles", err)
	}
	snap, err := indicators.ComputeAll(candles)
	if err != nil {
		return nil, err
	}
	ticker, err := g.market.FetchTicker(ctx, pair)
	if err != nil {
		return nil, upstream("ticker", err)
	}
	book, err := g.market.FetchOrderBook(ctx, pair, g.cfg.OrderBookDepth)
	if err != nil {
		return nil, upstream("order book", err)
	}

	liq := g.liquidity.Fetch(ctx)
	analysis, err := g.reasoner.Analyze(ctx, pair, &models.MarketData{
		Pair:       pair,
		Ticker:     ticker,
		OrderBook:  book,
		Indicators: snap,
		Liquidity:  liq,
	})
	if err != nil {
		return nil, err
	}

	sig := models.NewSignal(pair, snap, analysis, liquidity.Assessment(liq), g.now().UTC())
	sig.ID = uuid.NewString()
	if _, err := g.store.Persist(ctx, sig); err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		return nil, err
	}

	if g.cache != nil && g.cfg.LatestTTL > 0 {
		if err := g.cache.Set(ctx, latestKey(pair), sig, g.cfg.LatestTTL); err != nil {
			g.log.Warn("cache latest signal", logger.String("pair", pair), logger.Error(err))
		}
	}
	return sig, nil
}

func upstream(what string, err error) error {
	if errors.Is(err, domain.ErrUpstreamFetch) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamFetch, what, err)
}

// errorKind maps the failure taxonomy onto metric labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, domain.ErrReasoningUnavailable):
		return "reasoning_unavailable"
	case errors.Is(err, domain.ErrReasoningTimeout):
		return "reasoning_timeout"
	case errors.Is(err, domain.ErrInvalidReasoningOutput):
		return "invalid_reasoning_output"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	case errors.Is(err, domain.ErrUpstreamFetch):
		return "upstream"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "deadline"
	default:
		return "unknown"
	}
}
