package service

import (
	"context"

	"CryptoEdge/internal/domain/models"
)

// Reasoner consults the external reasoning model.
type Reasoner interface {
	Available() bool
	Analyze(ctx context.Context, pair string, data *models.MarketData) (*models.Analysis, error)
}

// LiquiditySource returns the last good macro snapshot, or nil on a cold cache.
// It never fails the caller.
type LiquiditySource interface {
	Fetch(ctx context.Context) *models.LiquidityContext
}

// LearningMemory owns the performance digest.
type LearningMemory interface {
	Context() string
	Rebuild(ctx context.Context) (*models.Digest, error)
}
