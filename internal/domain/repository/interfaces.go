package repository

import (
	"context"
	"time"

	"CryptoEdge/internal/domain/models"
)

// MarketData is the exchange collaborator. Any error means "skip this pair
// this cycle".
type MarketData interface {
	FetchCandles(ctx context.Context, pair string, intervalMinutes int) ([]models.Candle, error)
	FetchTicker(ctx context.Context, pair string) (*models.Ticker, error)
	FetchOrderBook(ctx context.Context, pair string, depth int) (*models.OrderBook, error)
}

// SignalStore exclusively owns the signal table.
type SignalStore interface {
	Init(ctx context.Context) error // ensure tables
	Persist(ctx context.Context, s *models.Signal) (string, error)
	Latest(ctx context.Context, pair string) (*models.Signal, error)
	History(ctx context.Context, pair string, limit int) ([]*models.Signal, error)
	// ActiveAt returns the most recent signal for pair created at or before t,
	// or ErrNotFound.
	ActiveAt(ctx context.Context, pair string, t time.Time) (*models.Signal, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// TradeFeed is the read-only closed-trade feed of the trading subsystem.
type TradeFeed interface {
	ClosedTrades(ctx context.Context) ([]models.ClosedTrade, error)
}

// Publisher is fire-and-forget, best-effort per subscriber.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

type Metrics interface {
	RecordCycle(result string)
	RecordSignal(pair string, direction models.Direction)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordConfidence(pair string, confidence float64)
}
