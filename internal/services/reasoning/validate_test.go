package reasoning

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
)

func TestParseAnalysisRepairsFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, a *models.Analysis)
	}{
		{
			name: "valid payload passes through",
			raw:  `{"direction":"short","confidence":64,"market_sentiment":"bearish","risk_level":"high","analysis":"weak","technical_summary":"rsi falling","suggested_entry":101.5}`,
			check: func(t *testing.T, a *models.Analysis) {
				assert.Equal(t, models.DirectionShort, a.Direction)
				assert.Equal(t, 64.0, a.Confidence)
				assert.Equal(t, models.SentimentBearish, a.MarketSentiment)
				assert.Equal(t, models.RiskHigh, a.RiskLevel)
				assert.Equal(t, "weak", a.Analysis)
				require.NotNil(t, a.SuggestedEntry)
				assert.Equal(t, 101.5, *a.SuggestedEntry)
			},
		},
		{
			name: "unknown enums fall back",
			raw:  `{"direction":"moon","market_sentiment":"euphoric","risk_level":"extreme"}`,
			check: func(t *testing.T, a *models.Analysis) {
				assert.Equal(t, models.DirectionHold, a.Direction)
				assert.Equal(t, models.SentimentNeutral, a.MarketSentiment)
				assert.Equal(t, models.RiskMedium, a.RiskLevel)
				assert.Equal(t, 50.0, a.Confidence)
				assert.Empty(t, a.KeyFactors)
			},
		},
		{
			name: "non-numeric confidence defaults",
			raw:  `{"direction":"long","confidence":"80"}`,
			check: func(t *testing.T, a *models.Analysis) {
				assert.Equal(t, 50.0, a.Confidence)
			},
		},
		{
			name: "prices must be positive numbers",
			raw:  `{"suggested_entry":-1,"suggested_stop_loss":"99","suggested_take_profit":0}`,
			check: func(t *testing.T, a *models.Analysis) {
				assert.Nil(t, a.SuggestedEntry)
				assert.Nil(t, a.SuggestedStopLoss)
				assert.Nil(t, a.SuggestedTakeProfit)
			},
		},
		{
			name: "markdown fences are stripped",
			raw:  "```json\n{\"direction\":\"long\",\"confidence\":70}\n```",
			check: func(t *testing.T, a *models.Analysis) {
				assert.Equal(t, models.DirectionLong, a.Direction)
				assert.Equal(t, 70.0, a.Confidence)
			},
		},
		{
			name: "free text is bounded",
			raw: fmt.Sprintf(`{"analysis":%q,"technical_summary":%q,"key_factors":["a",%q,42,"d","e","f","g"]}`,
				strings.Repeat("x", 600), strings.Repeat("y", 400), strings.Repeat("z", 150)),
			check: func(t *testing.T, a *models.Analysis) {
				assert.Len(t, a.Analysis, 500)
				assert.Len(t, a.TechnicalSummary, 300)
				require.Len(t, a.KeyFactors, 5)
				assert.Len(t, a.KeyFactors[1], 100)
				assert.Equal(t, "42", a.KeyFactors[2])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnalysis(tt.raw)
			require.NoError(t, err)
			tt.check(t, a)
		})
	}
}

func TestParseAnalysisRejectsUnparseable(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", "[1,2]", "null", "```json\n{broken\n```"} {
		_, err := ParseAnalysis(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidReasoningOutput, "input %q", raw)
	}
}

func TestConfidenceAlwaysClamped(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`{"confidence":120}`, 95},
		{`{"confidence":10}`, 30},
		{`{"confidence":-5}`, 30},
		{`{"confidence":72.345}`, 72.3},
		{`{"confidence":72.35}`, 72.4},
		{`{"confidence":null}`, 50},
		{`{"confidence":true}`, 50},
		{`{}`, 50},
	}
	for _, tt := range tests {
		a, err := ParseAnalysis(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, a.Confidence, tt.raw)
		assert.True(t, a.Confidence >= 30 && a.Confidence <= 95)
	}
}

func TestScoreOverrideFollowsHigherScore(t *testing.T) {
	directions := []string{"long", "short", "hold"}
	for long := 0; long <= 100; long += 7 {
		for short := 0; short <= 100; short += 11 {
			for _, stated := range directions {
				raw := fmt.Sprintf(`{"direction":%q,"long_score":%d,"short_score":%d}`, stated, long, short)
				a, err := ParseAnalysis(raw)
				require.NoError(t, err)

				diff := long - short
				switch {
				case diff > overrideMargin:
					assert.Equal(t, models.DirectionLong, a.Direction, raw)
				case diff < -overrideMargin:
					assert.Equal(t, models.DirectionShort, a.Direction, raw)
				default:
					assert.Equal(t, models.Direction(stated), a.Direction, raw)
					assert.False(t, a.Overridden, raw)
				}
			}
		}
	}
}

func TestScoreOverrideNeedsBothScores(t *testing.T) {
	a, err := ParseAnalysis(`{"direction":"short","long_score":90}`)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionShort, a.Direction)
	assert.False(t, a.Overridden)

	a, err = ParseAnalysis(`{"direction":"short","long_score":90,"short_score":"10"}`)
	require.NoError(t, err)
	assert.Equal(t, models.DirectionShort, a.Direction)
}
