// Package learning turns closed trade outcomes into a Markdown digest that is
// fed back to the reasoning model as context.
package learning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	"CryptoEdge/internal/domain/repository"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/pkg/cache"
	"CryptoEdge/pkg/logger"
)

const (
	DefaultPath  = "./data/agent-learning.md"
	cacheKey     = "learning:digest"
	rebuildLock  = "learning:rebuild"
	cacheTTL     = 24 * time.Hour
	rebuildGuard = 2 * time.Minute
)

type Option func(*Memory)

func WithPath(path string) Option { return func(m *Memory) { m.path = path } }

// WithCache mirrors the rendered digest and guards rebuilds across instances.
func WithCache(c cache.Service) Option { return func(m *Memory) { m.cache = c } }

func WithClock(now func() time.Time) Option { return func(m *Memory) { m.now = now } }

// Memory owns the learning digest. Rebuilds are serialized; readers always
// see a complete digest, never a partial write.
type Memory struct {
	signals repository.SignalStore
	trades  repository.TradeFeed
	path    string
	cache   cache.Service
	log     *logger.Logger
	now     func() time.Time

	rebuild sync.Mutex

	mu   sync.RWMutex
	text string
	last *models.Digest
}

var _ domsvc.LearningMemory = (*Memory)(nil)

func NewMemory(signals repository.SignalStore, trades repository.TradeFeed, log *logger.Logger, opts ...Option) *Memory {
	m := &Memory{
		signals: signals,
		trades:  trades,
		path:    DefaultPath,
		log:     log.With(logger.Category("LEARNING")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rebuild regenerates the digest from every closed trade. On failure the
// previous digest stays in place.
func (m *Memory) Rebuild(ctx context.Context) (*models.Digest, error) {
	m.rebuild.Lock()
	defer m.rebuild.Unlock()

	if m.cache != nil {
		ok, err := m.cache.TryLock(ctx, rebuildLock, rebuildGuard)
		if err == nil && !ok {
			m.log.Debug("rebuild skipped, another instance holds the lock")
			return m.Last(), nil
		}
		if err == nil {
			defer func() { _ = m.cache.Unlock(context.Background(), rebuildLock) }()
		}
	}

	start := m.now()
	closed, err := m.trades.ClosedTrades(ctx)
	if err != nil {
		m.log.Error("load closed trades", logger.Error(err))
		return nil, fmt.Errorf("%w: closed trades: %w", domain.ErrStorage, err)
	}

	joined := make([]joinedTrade, 0, len(closed))
	for _, t := range closed {
		j := joinedTrade{ClosedTrade: t}
		sig, err := m.signals.ActiveAt(ctx, t.Pair, t.EntryTime)
		switch {
		case err == nil:
			j.SignalRSI = sig.RSI
			c := sig.Confidence
			j.SignalConfidence = &c
		case errors.Is(err, domain.ErrNotFound):
		default:
			m.log.Error("join trade to signal", logger.Error(err), logger.String("trade_id", t.ID))
			return nil, fmt.Errorf("%w: active signal: %w", domain.ErrStorage, err)
		}
		joined = append(joined, j)
	}

	d := buildDigest(joined, m.now())
	d.Text = render(d)

	if err := m.write(d.Text); err != nil {
		m.log.Error("write digest", logger.Error(err), logger.String("path", m.path))
		return nil, err
	}

	m.mu.Lock()
	m.text = d.Text
	m.last = d
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Set(ctx, cacheKey, d.Text, cacheTTL); err != nil {
			m.log.Warn("mirror digest to cache", logger.Error(err))
		}
	}

	m.log.Info("learning digest rebuilt",
		logger.Int("trades", d.TotalTrades),
		logger.Int("lessons", len(d.Lessons)),
		logger.Duration("took_ms", m.now().Sub(start)))
	return d, nil
}

// write replaces the digest file atomically.
func (m *Memory) write(text string) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create digest dir: %w", domain.ErrStorage, err)
	}
	tmp, err := os.CreateTemp(dir, ".agent-learning-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp digest: %w", domain.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write digest: %w", domain.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync digest: %w", domain.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close digest: %w", domain.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("%w: replace digest: %w", domain.ErrStorage, err)
	}
	return nil
}

// Context returns the current digest text, or "" when none is available.
// It never fails.
func (m *Memory) Context() string {
	m.mu.RLock()
	text := m.text
	m.mu.RUnlock()
	if text != "" {
		return text
	}

	if b, err := os.ReadFile(m.path); err == nil && len(b) > 0 {
		m.mu.Lock()
		if m.text == "" {
			m.text = string(b)
		}
		text = m.text
		m.mu.Unlock()
		return text
	}

	if m.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		var cached string
		if err := m.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached
		}
	}
	return ""
}

// Last returns the digest from the most recent successful rebuild in this
// process, or nil.
func (m *Memory) Last() *models.Digest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run rebuilds once immediately and then on every tick until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if _, err := m.Rebuild(ctx); err != nil {
		m.log.Warn("initial rebuild failed", logger.Error(err))
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Rebuild(ctx); err != nil {
				m.log.Warn("scheduled rebuild failed", logger.Error(err))
			}
		}
	}
}
