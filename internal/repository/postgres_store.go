package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"
	"CryptoEdge/pkg/logger"
	"CryptoEdge/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSignalStore is the Postgres alternative to CHSignalStore.
type PGSignalStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

var (
	_ domrepo.SignalStore = (*PGSignalStore)(nil)
	_ domrepo.TradeFeed   = (*PGSignalStore)(nil)
)

func NewPGSignalStore(pool *pgxpool.Pool, log *logger.Logger) *PGSignalStore {
	return &PGSignalStore{pool: pool, log: log.With(logger.Category("STORAGE"), logger.String("driver", "postgres"))}
}

func (s *PGSignalStore) Init(ctx context.Context) error {
	stmts := []string{
		`create table if not exists signals (
			id text primary key,
			pair text not null,
			direction text not null check (direction in ('long','short','hold')),
			confidence double precision not null,
			price_at_signal double precision not null,
			rsi double precision null,
			macd double precision null,
			macd_signal double precision null,
			bb_upper double precision null,
			bb_lower double precision null,
			adx double precision null,
			atr double precision null,
			market_sentiment text not null default 'neutral',
			risk_level text not null default 'medium',
			analysis_text text not null default '',
			key_factors text not null default '[]',
			technical_summary text not null default '',
			long_score double precision null,
			short_score double precision null,
			suggested_entry double precision null,
			suggested_stop_loss double precision null,
			suggested_take_profit double precision null,
			model_version text not null default '',
			token_usage bigint null,
			analysis_source text not null default 'reasoning',
			global_liquidity_assessment text not null default '',
			created_at timestamptz not null default now()
		);`,
		`create index if not exists signals_pair_created_idx on signals(pair, created_at desc);`,
	}
	if err := postgres.Migrate(ctx, s.pool, stmts); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nil
}

func (s *PGSignalStore) Persist(ctx context.Context, sig *models.Signal) (string, error) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	args, err := signalArgs(sig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	q := `insert into signals (` + signalColumns + `) values (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`
	if _, err := s.pool.Exec(ctx, q, args...); err != nil {
		s.log.Error("insert signal", logger.String("pair", sig.Pair), logger.Error(err))
		return "", fmt.Errorf("%w: insert signal: %w", domain.ErrStorage, err)
	}
	return sig.ID, nil
}

func (s *PGSignalStore) Latest(ctx context.Context, pair string) (*models.Signal, error) {
	return s.one(ctx, `select `+signalColumns+` from signals where pair = $1 order by created_at desc limit 1`, pair)
}

func (s *PGSignalStore) ActiveAt(ctx context.Context, pair string, t time.Time) (*models.Signal, error) {
	return s.one(ctx, `select `+signalColumns+` from signals where pair = $1 and created_at <= $2 order by created_at desc limit 1`, pair, t)
}

func (s *PGSignalStore) one(ctx context.Context, q string, args ...any) (*models.Signal, error) {
	sig, err := scanSignal(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return sig, nil
}

func (s *PGSignalStore) History(ctx context.Context, pair string, limit int) ([]*models.Signal, error) {
	rows, err := s.pool.Query(ctx, `select `+signalColumns+` from signals where pair = $1 order by created_at desc limit $2`, pair, limit)
	if err != nil {
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

func (s *PGSignalStore) ClosedTrades(ctx context.Context) ([]models.ClosedTrade, error) {
	rows, err := s.pool.Query(ctx, `select id::text, `+tradeColumns+`
		from trades where status = 'closed' and pnl is not null order by closed_at desc`)
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

func (s *PGSignalStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGSignalStore) Close() error {
	s.pool.Close()
	return nil
}
