package repository

import (
	"fmt"

	"CryptoEdge/internal/domain/models"

	"github.com/goccy/go-json"
)

const signalColumns = `id, pair, direction, confidence, price_at_signal,
	rsi, macd, macd_signal, bb_upper, bb_lower, adx, atr,
	market_sentiment, risk_level, analysis_text, key_factors, technical_summary,
	long_score, short_score, suggested_entry, suggested_stop_loss, suggested_take_profit,
	model_version, token_usage, analysis_source, global_liquidity_assessment, created_at`

// scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// signalArgs matches signalColumns. Key factors are stored as a JSON array.
func signalArgs(s *models.Signal) ([]any, error) {
	factors, err := json.Marshal(s.KeyFactors)
	if err != nil {
		return nil, fmt.Errorf("encode key factors: %w", err)
	}
	return []any{
		s.ID, s.Pair, string(s.Direction), s.Confidence, s.PriceAtSignal,
		s.RSI, s.MACD, s.MACDSignal, s.BBUpper, s.BBLower, s.ADX, s.ATR,
		string(s.MarketSentiment), string(s.RiskLevel), s.AnalysisText, string(factors), s.TechnicalSummary,
		s.LongScore, s.ShortScore, s.SuggestedEntry, s.SuggestedStopLoss, s.SuggestedTakeProfit,
		s.ModelVersion, s.TokenUsage, s.AnalysisSource, s.LiquidityAssessment, s.CreatedAt.UTC(),
	}, nil
}

func scanSignal(row scanner) (*models.Signal, error) {
	var (
		s                          models.Signal
		direction, sentiment, risk string
		factors                    string
	)
	if err := row.Scan(
		&s.ID, &s.Pair, &direction, &s.Confidence, &s.PriceAtSignal,
		&s.RSI, &s.MACD, &s.MACDSignal, &s.BBUpper, &s.BBLower, &s.ADX, &s.ATR,
		&sentiment, &risk, &s.AnalysisText, &factors, &s.TechnicalSummary,
		&s.LongScore, &s.ShortScore, &s.SuggestedEntry, &s.SuggestedStopLoss, &s.SuggestedTakeProfit,
		&s.ModelVersion, &s.TokenUsage, &s.AnalysisSource, &s.LiquidityAssessment, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Direction = models.Direction(direction)
	s.MarketSentiment = models.Sentiment(sentiment)
	s.RiskLevel = models.RiskLevel(risk)
	s.KeyFactors = []string{}
	if factors != "" {
		if err := json.Unmarshal([]byte(factors), &s.KeyFactors); err != nil {
			return nil, fmt.Errorf("decode key factors: %w", err)
		}
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

const tradeColumns = `pair, direction, entry_price, exit_price, quantity, confidence, pnl, created_at, closed_at`

func scanTrade(row scanner) (models.ClosedTrade, error) {
	var (
		t         models.ClosedTrade
		direction string
		exit      *float64
	)
	if err := row.Scan(
		&t.ID, &t.Pair, &direction, &t.EntryPrice, &exit, &t.Quantity, &t.Confidence, &t.PnL, &t.EntryTime, &t.ClosedAt,
	); err != nil {
		return t, err
	}
	t.Direction = models.Direction(direction)
	if exit != nil {
		t.ExitPrice = *exit
	}
	return t, nil
}
