package reasoning

import (
	"fmt"
	"strconv"
	"strings"

	"CryptoEdge/internal/domain/models"
)

const (
	learningPrefix    = "AGENT LEARNING MEMORY (from past trade outcomes):"
	learningAck       = "Understood. I will weigh these historical outcomes when scoring the current setup."
	truncationMarker  = "\n…[truncated]"
	defaultMaxLearned = 4000
)

const systemPrompt = `You are an expert crypto trading analyst operating like a systematic strategy engine. You analyze multiple technical indicators with multi-factor confluence to generate trading signals.

Analysis framework (in priority order):
1. TREND CONTEXT: Check EMA alignment (20/50/200). Only trade in trend direction unless strong reversal signals.
2. TREND STRENGTH: ADX > 25 = strong trend (trust momentum), ADX < 20 = ranging (use mean-reversion).
3. MOMENTUM: RSI, Stochastic, MACD must align. Divergences between price and momentum = high-value signals.
4. VOLUME CONFIRMATION: Require volume ratio > 1.2 for entries. OBV trend must confirm price direction. MFI confirms money flow.
5. VOLATILITY: Use ATR for dynamic stop-loss (1.5-2x ATR) and take-profit (2-3x ATR). Bollinger Band position shows relative price level.
6. MICROSTRUCTURE: Order book imbalance > 0.6 favors that side. Spread indicates liquidity.
7. KEY LEVELS: Distance from support/resistance and VWAP influences entry quality.
8. GLOBAL LIQUIDITY: An expanding liquidity score is a tailwind for longs, a contracting one for shorts. Use it as bias, never as the sole reason.

Scoring rules:
- Score the long case and the short case independently from 0 to 100 before choosing a direction
- The direction must match the higher score; hold when the scores are within 5 points
- Need 3+ confirming factors for a directional signal
- Volume must confirm (volume ratio > 1.0)
- Never give confidence > 85 unless 5+ factors align
- Hold if signals conflict or ADX < 15

You MUST respond with ONLY valid JSON (no markdown, no explanation outside the JSON). Use this exact structure:
{
  "direction": "long" or "short" or "hold",
  "confidence": 30-95,
  "long_score": 0-100,
  "short_score": 0-100,
  "market_sentiment": "bullish" or "bearish" or "neutral",
  "risk_level": "low" or "medium" or "high",
  "analysis": "2-4 sentence market analysis",
  "key_factors": ["factor 1", "factor 2", "factor 3"],
  "technical_summary": "1-2 sentences on indicator state",
  "suggested_entry": price_number_or_null,
  "suggested_stop_loss": price_number_or_null,
  "suggested_take_profit": price_number_or_null
}`

// SystemPrompt returns the fixed policy preamble.
func SystemPrompt() string { return systemPrompt }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages assembles the conversation: policy, an optional learning
// turn pair, then the market snapshot.
func BuildMessages(pair string, data *models.MarketData, learning string, maxLearning int) []Message {
	msgs := []Message{{Role: "system", Content: systemPrompt}}

	if block := LearningBlock(learning, maxLearning); block != "" {
		msgs = append(msgs,
			Message{Role: "user", Content: block},
			Message{Role: "assistant", Content: learningAck},
		)
	}
	return append(msgs, Message{Role: "user", Content: BuildUserPrompt(pair, data)})
}

// LearningBlock prefixes the digest and bounds it to limit characters.
func LearningBlock(digest string, limit int) string {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return ""
	}
	if limit <= 0 {
		limit = defaultMaxLearned
	}
	if r := []rune(digest); len(r) > limit {
		digest = string(r[:limit]) + truncationMarker
	}
	return learningPrefix + "\n\n" + digest
}

func num(v *float64, prec int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func flag(v *bool) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatBool(*v)
}

func raw(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func joinFixed(xs []float64, prec int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'f', prec, 64)
	}
	return strings.Join(parts, ", ")
}

// BuildUserPrompt renders the market snapshot. Sections without data are
// omitted; missing indicator values render as N/A.
func BuildUserPrompt(pair string, data *models.MarketData) string {
	if data == nil {
		data = &models.MarketData{}
	}
	ind := data.Indicators
	if ind == nil {
		ind = &models.IndicatorSnapshot{}
	}

	var sections []string
	add := func(format string, args ...interface{}) {
		sections = append(sections, fmt.Sprintf(format, args...))
	}

	add("=== %s Market Analysis Request ===", pair)

	if lc := data.Liquidity; lc != nil {
		add(`GLOBAL LIQUIDITY:
  Liquidity Score: %+d (%s)
  Market Cap 24h Change: %.2f%%
  BTC Dominance: %.2f%%
  Total Market Cap: $%.2fB
  24h Volume: $%.2fB`,
			lc.Score, lc.Trend, lc.MarketCapChange24hPct, lc.BTCDominancePct,
			lc.TotalMarketCapUSD/1e9, lc.Volume24hUSD/1e9)
	}

	if t := data.Ticker; t != nil {
		add(`TICKER:
  Price: %s
  24h Change: %.2f%%
  24h High: %s
  24h Low: %s
  24h Volume: %.2f
  VWAP 24h: %s
  Trade Count 24h: %d`,
			raw(t.Price), t.Change24h, raw(t.High24h), raw(t.Low24h), t.Volume24h, raw(t.VWAP24h), t.Trades24h)
	}

	add(`TREND:
  EMA 20: %s
  EMA 50: %s
  EMA 200: %s
  EMA20 > EMA50: %s
  EMA50 > EMA200: %s`,
		num(ind.EMA.EMA20, 2), num(ind.EMA.EMA50, 2), num(ind.EMA.EMA200, 2),
		flag(ind.EMA.EMA20Above50), flag(ind.EMA.EMA50Above200))

	add(`MOMENTUM:
  RSI(14): %s
  Stochastic %%K: %s
  Stochastic %%D: %s
  MACD Line: %s
  MACD Signal: %s
  MACD Histogram: %s`,
		num(ind.RSI, 2), num(ind.Stochastic.K, 2), num(ind.Stochastic.D, 2),
		num(ind.MACD.Line, 4), num(ind.MACD.Signal, 4), num(ind.MACD.Histogram, 4))

	add(`VOLATILITY:
  BB Upper: %s
  BB Middle: %s
  BB Lower: %s
  BB Position: %s
  ATR(14): %s`,
		num(ind.Bollinger.Upper, 2), num(ind.Bollinger.Middle, 2), num(ind.Bollinger.Lower, 2),
		num(ind.Bollinger.Position, 3), num(ind.ATR, 2))

	obvTrend := ind.OBV.Trend
	if obvTrend == "" {
		obvTrend = "N/A"
	}
	add(`VOLUME:
  OBV: %s (%s)
  MFI(14): %s
  Volume Ratio (vs 20-avg): %s`,
		num(ind.OBV.Value, 0), obvTrend, num(ind.MFI, 2), num(ind.VolumeRatio, 2))

	if ob := data.OrderBook; ob != nil {
		add("%s", orderBookSection(ob))
	}

	add(`TREND STRENGTH:
  ADX: %s
  +DI: %s
  -DI: %s`,
		num(ind.ADX.ADX, 2), num(ind.ADX.PlusDI, 2), num(ind.ADX.MinusDI, 2))

	add(`KEY LEVELS:
  Support: %s
  Resistance: %s
  VWAP: %s`,
		num(ind.SupportResistance.Support, 2), num(ind.SupportResistance.Resistance, 2), num(ind.VWAP, 2))

	if n := len(ind.RecentCloses); n > 0 {
		add("RECENT CLOSES (last %d): %s", n, joinFixed(ind.RecentCloses, 2))
	}
	if n := len(ind.RecentVolumes); n > 0 {
		add("RECENT VOLUMES (last %d): %s", n, joinFixed(ind.RecentVolumes, 4))
	}

	return strings.Join(sections, "\n\n")
}

func orderBookSection(ob *models.OrderBook) string {
	var bidDepth, askDepth float64
	for _, b := range ob.Bids {
		bidDepth += b.Volume
	}
	for _, a := range ob.Asks {
		askDepth += a.Volume
	}

	bestBid, bestAsk, spread := "N/A", "N/A", "N/A"
	bid, ask := ob.BestBid(), ob.BestAsk()
	if bid != nil {
		bestBid = raw(bid.Price)
	}
	if ask != nil {
		bestAsk = raw(ask.Price)
	}
	if bid != nil && ask != nil && ask.Price > 0 {
		spread = strconv.FormatFloat((ask.Price-bid.Price)/ask.Price*100, 'f', 4, 64)
	}

	imbalance := "N/A"
	if total := bidDepth + askDepth; total > 0 {
		imbalance = strconv.FormatFloat(bidDepth/total, 'f', 3, 64)
	}

	return fmt.Sprintf(`ORDER BOOK:
  Best Bid: %s
  Best Ask: %s
  Spread: %s%%
  Bid Depth: %.4f
  Ask Depth: %.4f
  Imbalance (bid ratio): %s`, bestBid, bestAsk, spread, bidDepth, askDepth, imbalance)
}
