package liquidity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/pkg/cache"
	xhttp "CryptoEdge/pkg/http"
	"CryptoEdge/pkg/logger"
)

const (
	DefaultURL = "https://api.coingecko.com/api/v3/global"
	cacheKey   = "liquidity:snapshot"
)

type globalResponse struct {
	Data *struct {
		TotalMarketCap        map[string]float64 `json:"total_market_cap"`
		TotalVolume           map[string]float64 `json:"total_volume"`
		MarketCapChange24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
		MarketCapPercentage   map[string]float64 `json:"market_cap_percentage"`
	} `json:"data"`
}

type Option func(*Service)

func WithURL(url string) Option { return func(s *Service) { s.url = url } }

func WithTTL(ttl time.Duration) Option { return func(s *Service) { s.ttl = ttl } }

func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// WithCache mirrors each good snapshot so a restarted instance starts warm.
func WithCache(c cache.Service) Option { return func(s *Service) { s.cache = c } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithHTTPClient(c *xhttp.Client) Option { return func(s *Service) { s.client = c } }

// Service caches the macro liquidity snapshot. Fetch never fails the caller:
// on any upstream failure it logs the cause and serves the last good value,
// or nil on a cold cache.
type Service struct {
	client  *xhttp.Client
	url     string
	ttl     time.Duration
	timeout time.Duration
	cache   cache.Service
	log     *logger.Logger
	now     func() time.Time

	refresh sync.Mutex // single writer per refresh

	// primed closes once the first refresh attempt finishes, good or not.
	primed    chan struct{}
	primeOnce sync.Once

	mu        sync.RWMutex
	snap      *models.LiquidityContext
	fetchedAt time.Time
}

var _ domsvc.LiquiditySource = (*Service)(nil)

func NewService(log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		url:     DefaultURL,
		ttl:     5 * time.Minute,
		timeout: 10 * time.Second,
		log:     log.With(logger.Category("GLOBAL_LIQUIDITY")),
		now:     time.Now,
		primed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = xhttp.NewClient(xhttp.WithTimeout(s.timeout))
	}
	return s
}

func (s *Service) current() (*models.LiquidityContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fresh := s.snap != nil && s.now().Sub(s.fetchedAt) < s.ttl
	return s.snap, fresh
}

func (s *Service) store(lc *models.LiquidityContext, at time.Time) {
	s.mu.Lock()
	s.snap, s.fetchedAt = lc, at
	s.mu.Unlock()
}

// Fetch returns the cached snapshot while fresh, otherwise refreshes it.
// Concurrent callers do not queue behind a refresh in progress; they get the
// current (possibly stale) value. The exception is a cold start: callers with
// nothing to serve wait for the first refresh, bounded by ctx and the request
// timeout.
func (s *Service) Fetch(ctx context.Context) *models.LiquidityContext {
	if snap, fresh := s.current(); fresh {
		return snap
	}

	if !s.refresh.TryLock() {
		snap, _ := s.current()
		if snap == nil {
			snap = s.awaitFirst(ctx)
		}
		return snap
	}
	defer s.refresh.Unlock()
	defer s.primeOnce.Do(func() { close(s.primed) })

	if snap, fresh := s.current(); fresh {
		return snap
	}
	if s.warmStart(ctx) {
		snap, _ := s.current()
		return snap
	}

	lc, err := s.fetch(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Error("liquidity request timeout", logger.Error(err))
		} else {
			s.log.Error("liquidity fetch failed", logger.Error(err))
		}
		snap, _ := s.current()
		return snap
	}

	s.store(lc, lc.FetchedAt)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, lc, s.ttl); err != nil {
			s.log.Warn("mirror liquidity snapshot", logger.Error(err))
		}
	}
	return lc
}

func (s *Service) awaitFirst(ctx context.Context) *models.LiquidityContext {
	t := time.NewTimer(s.timeout)
	defer t.Stop()
	select {
	case <-s.primed:
	case <-ctx.Done():
	case <-t.C:
	}
	snap, _ := s.current()
	return snap
}

// warmStart adopts a still-fresh snapshot mirrored by another instance.
func (s *Service) warmStart(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	s.mu.RLock()
	cold := s.snap == nil
	s.mu.RUnlock()
	if !cold {
		return false
	}

	var lc models.LiquidityContext
	if err := s.cache.Get(ctx, cacheKey, &lc); err != nil {
		return false
	}
	if s.now().Sub(lc.FetchedAt) >= s.ttl {
		return false
	}
	s.store(&lc, lc.FetchedAt)
	return true
}

func (s *Service) fetch(ctx context.Context) (*models.LiquidityContext, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp globalResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.url,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: global market data: %w", domain.ErrUpstreamFetch, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: no data in global market response", domain.ErrUpstreamFetch)
	}

	d := resp.Data
	lc := &models.LiquidityContext{
		TotalMarketCapUSD:     d.TotalMarketCap["usd"],
		Volume24hUSD:          d.TotalVolume["usd"],
		MarketCapChange24hPct: d.MarketCapChange24hUSD,
		BTCDominancePct:       d.MarketCapPercentage["btc"],
		FetchedAt:             s.now(),
	}
	lc.Score = ComputeScore(lc.MarketCapChange24hPct, lc.BTCDominancePct, lc.TotalMarketCapUSD, lc.Volume24hUSD)
	lc.Trend = TrendFor(lc.Score)
	return lc, nil
}
