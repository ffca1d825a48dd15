package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	pkgch "CryptoEdge/pkg/clickhouse"
	"CryptoEdge/pkg/logger"

	"github.com/google/uuid"
)

// CHSignalStore persists signals to a ClickHouse MergeTree table and reads
// closed trades from the trading subsystem's table in the same database.
type CHSignalStore struct {
	ch  *pkgch.Client
	db  *sql.DB
	log *logger.Logger
}

var (
	_ domrepo.SignalStore = (*CHSignalStore)(nil)
	_ domrepo.TradeFeed   = (*CHSignalStore)(nil)
)

func NewCHSignalStore(ch *pkgch.Client, log *logger.Logger) *CHSignalStore {
	return &CHSignalStore{ch: ch, db: ch.DB(), log: log.With(logger.Category("STORAGE"), logger.String("driver", "clickhouse"))}
}

func (s *CHSignalStore) table(name string) string {
	return s.ch.Database() + "." + name
}

func (s *CHSignalStore) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, s.ch.Database()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id String,
			pair LowCardinality(String),
			direction LowCardinality(String),
			confidence Float64,
			price_at_signal Float64,
			rsi Nullable(Float64),
			macd Nullable(Float64),
			macd_signal Nullable(Float64),
			bb_upper Nullable(Float64),
			bb_lower Nullable(Float64),
			adx Nullable(Float64),
			atr Nullable(Float64),
			market_sentiment LowCardinality(String),
			risk_level LowCardinality(String),
			analysis_text String,
			key_factors String,
			technical_summary String,
			long_score Nullable(Float64),
			short_score Nullable(Float64),
			suggested_entry Nullable(Float64),
			suggested_stop_loss Nullable(Float64),
			suggested_take_profit Nullable(Float64),
			model_version String,
			token_usage Nullable(Int64),
			analysis_source LowCardinality(String),
			global_liquidity_assessment String,
			created_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree
		ORDER BY (pair, created_at)`, s.table("signals")),
	}
	if err := s.ch.InitSchema(ctx, stmts); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *CHSignalStore) Persist(ctx context.Context, sig *models.Signal) (string, error) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	args, err := signalArgs(sig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.table("signals"), signalColumns)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.log.Error("insert signal", logger.String("pair", sig.Pair), logger.Error(err))
		return "", fmt.Errorf("%w: insert signal: %w", domain.ErrStorage, err)
	}
	s.log.Debug("signal stored",
		logger.String("pair", sig.Pair),
		logger.String("id", sig.ID),
		logger.Duration("duration_ms", time.Since(start)))
	return sig.ID, nil
}

func (s *CHSignalStore) Latest(ctx context.Context, pair string) (*models.Signal, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE pair = ? ORDER BY created_at DESC LIMIT 1`, signalColumns, s.table("signals"))
	return s.one(ctx, q, pair)
}

func (s *CHSignalStore) ActiveAt(ctx context.Context, pair string, t time.Time) (*models.Signal, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE pair = ? AND created_at <= ? ORDER BY created_at DESC LIMIT 1`,
		signalColumns, s.table("signals"))
	return s.one(ctx, q, pair, t.UTC())
}

func (s *CHSignalStore) one(ctx context.Context, q string, args ...any) (*models.Signal, error) {
	sig, err := scanSignal(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return sig, nil
}

func (s *CHSignalStore) History(ctx context.Context, pair string, limit int) ([]*models.Signal, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE pair = ? ORDER BY created_at DESC LIMIT ?`, signalColumns, s.table("signals"))
	rows, err := s.db.QueryContext(ctx, q, pair, limit)
	if err != nil {
		s.log.Error("query history", logger.String("pair", pair), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	out := make([]*models.Signal, 0, limit)
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan signal: %w", domain.ErrStorage, err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return out, nil
}

// ClosedTrades reads the trading subsystem's trades table. Rows without a
// realized P&L are skipped.
func (s *CHSignalStore) ClosedTrades(ctx context.Context) ([]models.ClosedTrade, error) {
	q := fmt.Sprintf(`SELECT toString(id), %s FROM %s WHERE status = 'closed' AND pnl IS NOT NULL ORDER BY closed_at DESC`,
		tradeColumns, s.table("trades"))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: closed trades: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	var out []models.ClosedTrade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan trade: %w", domain.ErrStorage, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return out, nil
}

func (s *CHSignalStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *CHSignalStore) Close() error { return nil }
