package usecase

import (
	"context"
	"errors"
	"fmt"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/pkg/cache"
	"CryptoEdge/pkg/logger"
)

const (
	DefaultHistoryLimit = 24
	MaxHistoryLimit     = 500
)

// SignalQuery is the read side used by the API.
type SignalQuery struct {
	store  domrepo.SignalStore
	memory domsvc.LearningMemory
	cache  cache.Service
	pairs  []string
	log    *logger.Logger
}

func NewSignalQuery(store domrepo.SignalStore, memory domsvc.LearningMemory, c cache.Service, pairs []string, log *logger.Logger) *SignalQuery {
	return &SignalQuery{
		store:  store,
		memory: memory,
		cache:  c,
		pairs:  pairs,
		log:    log.With(logger.Category("SIGNAL")),
	}
}

// Pairs returns the configured pairs.
func (q *SignalQuery) Pairs() []string { return q.pairs }

// GetLatest returns the newest signal for pair, cache first.
func (q *SignalQuery) GetLatest(ctx context.Context, pair string) (*models.Signal, error) {
	if q.cache != nil {
		var sig models.Signal
		if err := q.cache.Get(ctx, latestKey(pair), &sig); err == nil && sig.Pair != "" {
			return &sig, nil
		}
	}
	sig, err := q.store.Latest(ctx, pair)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("latest %s: %w", pair, err)
	}
	return sig, nil
}

// GetLatestAll maps every configured pair to its newest signal; pairs without
// one map to nil. Cached pairs are served in one round trip.
func (q *SignalQuery) GetLatestAll(ctx context.Context) (map[string]*models.Signal, error) {
	out := make(map[string]*models.Signal, len(q.pairs))
	if q.cache != nil {
		keys := make([]string, len(q.pairs))
		for i, pair := range q.pairs {
			keys[i] = latestKey(pair)
		}
		cached, err := cache.MGetTyped[models.Signal](ctx, q.cache, keys...)
		if err != nil {
			q.log.Debug("latest signals cache miss", logger.Error(err))
		}
		for i, pair := range q.pairs {
			if sig, ok := cached[keys[i]]; ok && sig.Pair != "" {
				out[pair] = &sig
			}
		}
	}

	for _, pair := range q.pairs {
		if _, ok := out[pair]; ok {
			continue
		}
		sig, err := q.store.Latest(ctx, pair)
		switch {
		case err == nil:
			out[pair] = sig
		case errors.Is(err, domain.ErrNotFound):
			out[pair] = nil
		default:
			return nil, fmt.Errorf("latest %s: %w", pair, err)
		}
	}
	return out, nil
}

// GetHistory returns up to limit signals for pair, newest first.
func (q *SignalQuery) GetHistory(ctx context.Context, pair string, limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	out, err := q.store.History(ctx, pair, limit)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", pair, err)
	}
	if out == nil {
		out = []*models.Signal{}
	}
	return out, nil
}

func (q *SignalQuery) GetLearningDigestText() string {
	return q.memory.Context()
}

// RebuildLearning forces a digest rebuild and returns the new text.
func (q *SignalQuery) RebuildLearning(ctx context.Context) (string, error) {
	if _, err := q.memory.Rebuild(ctx); err != nil {
		return "", err
	}
	return q.memory.Context(), nil
}

// Health pings storage.
func (q *SignalQuery) Health(ctx context.Context) error {
	return q.store.Health(ctx)
}
