package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"

	"github.com/google/uuid"
)

// MemoryStore keeps signals and closed trades in process. Used when
// storage.driver is "memory" and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	signals map[string][]*models.Signal // per pair, ascending created_at
	trades  []models.ClosedTrade
}

var (
	_ domrepo.SignalStore = (*MemoryStore)(nil)
	_ domrepo.TradeFeed   = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{signals: make(map[string][]*models.Signal)}
}

func (m *MemoryStore) Init(context.Context) error { return nil }

func (m *MemoryStore) Persist(_ context.Context, s *models.Signal) (string, error) {
	cp := *s
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.KeyFactors = append([]string(nil), s.KeyFactors...)

	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.signals[cp.Pair]
	i := sort.Search(len(list), func(i int) bool { return list[i].CreatedAt.After(cp.CreatedAt) })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = &cp
	m.signals[cp.Pair] = list
	return cp.ID, nil
}

func (m *MemoryStore) Latest(_ context.Context, pair string) (*models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.signals[pair]
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	cp := *list[len(list)-1]
	return &cp, nil
}

// History returns up to limit signals, newest first.
func (m *MemoryStore) History(_ context.Context, pair string, limit int) ([]*models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.signals[pair]
	out := make([]*models.Signal, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) ActiveAt(_ context.Context, pair string, t time.Time) (*models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.signals[pair]
	i := sort.Search(len(list), func(i int) bool { return list[i].CreatedAt.After(t) })
	if i == 0 {
		return nil, domain.ErrNotFound
	}
	cp := *list[i-1]
	return &cp, nil
}

// AddClosedTrade records a trade closed by the trading subsystem.
func (m *MemoryStore) AddClosedTrade(t models.ClosedTrade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.trades = append(m.trades, t)
}

func (m *MemoryStore) ClosedTrades(context.Context) ([]models.ClosedTrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ClosedTrade(nil), m.trades...), nil
}

func (m *MemoryStore) Health(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
