package reasoning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoEdge/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func TestBuildUserPromptSections(t *testing.T) {
	up := true
	data := &models.MarketData{
		Pair: "BTC/EUR",
		Liquidity: &models.LiquidityContext{
			Score: 30, Trend: models.LiquidityExpanding, MarketCapChange24hPct: 5,
			BTCDominancePct: 52.1, TotalMarketCapUSD: 2.5e12, Volume24hUSD: 1.25e11,
		},
		Ticker: &models.Ticker{Price: 61000.5, Change24h: 1.234, Volume24h: 12.3456, Trades24h: 900},
		OrderBook: &models.OrderBook{
			Bids: []models.BookLevel{{Price: 100, Volume: 2}, {Price: 99, Volume: 1}},
			Asks: []models.BookLevel{{Price: 101, Volume: 1}},
		},
		Indicators: &models.IndicatorSnapshot{
			RSI:          f(55.556),
			MACD:         models.MACDValue{Line: f(1.23456)},
			EMA:          models.EMAValue{EMA20: f(10), EMA20Above50: &up},
			OBV:          models.OBVValue{Value: f(1234.6), Trend: "rising"},
			RecentCloses: []float64{1, 2.5},
		},
	}

	p := BuildUserPrompt("BTC/EUR", data)

	assert.True(t, strings.HasPrefix(p, "=== BTC/EUR Market Analysis Request ==="))
	assert.Contains(t, p, "Liquidity Score: +30 (expanding)")
	assert.Contains(t, p, "Total Market Cap: $2500.00B")
	assert.Contains(t, p, "24h Volume: $125.00B")
	assert.Contains(t, p, "24h Change: 1.23%")
	assert.Contains(t, p, "RSI(14): 55.56")
	assert.Contains(t, p, "MACD Line: 1.2346")
	assert.Contains(t, p, "MACD Signal: N/A")
	assert.Contains(t, p, "EMA20 > EMA50: true")
	assert.Contains(t, p, "EMA50 > EMA200: N/A")
	assert.Contains(t, p, "OBV: 1235 (rising)")
	assert.Contains(t, p, "Spread: 0.9901%")
	assert.Contains(t, p, "Bid Depth: 3.0000")
	assert.Contains(t, p, "Imbalance (bid ratio): 0.750")
	assert.Contains(t, p, "RECENT CLOSES (last 2): 1.00, 2.50")
	assert.NotContains(t, p, "RECENT VOLUMES")

	order := []string{"GLOBAL LIQUIDITY:", "TICKER:", "TREND:", "MOMENTUM:", "VOLATILITY:", "VOLUME:", "ORDER BOOK:", "TREND STRENGTH:", "KEY LEVELS:", "RECENT CLOSES"}
	last := -1
	for _, h := range order {
		idx := strings.Index(p, h)
		require.Greater(t, idx, last, h)
		last = idx
	}
}

func TestBuildUserPromptOmitsMissingSections(t *testing.T) {
	p := BuildUserPrompt("ETH/EUR", &models.MarketData{})
	assert.NotContains(t, p, "GLOBAL LIQUIDITY")
	assert.NotContains(t, p, "TICKER:")
	assert.NotContains(t, p, "ORDER BOOK:")
	assert.Contains(t, p, "RSI(14): N/A")
	assert.Contains(t, p, "OBV: N/A (N/A)")
}

func TestLearningBlock(t *testing.T) {
	assert.Equal(t, "", LearningBlock("  \n", 10))

	got := LearningBlock("abcdefghijklmnop", 10)
	assert.Equal(t, learningPrefix+"\n\nabcdefghij\n…[truncated]", got)

	assert.Equal(t, learningPrefix+"\n\nshort", LearningBlock("short", 10))
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("BTC/EUR", nil, "", 4000)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)

	msgs = BuildMessages("BTC/EUR", nil, "# Agent Learning Memory", 4000)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"system", "user", "assistant", "user"},
		[]string{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.True(t, strings.HasPrefix(msgs[1].Content, learningPrefix))
	assert.Contains(t, msgs[3].Content, "BTC/EUR Market Analysis Request")
}
