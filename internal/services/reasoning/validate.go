package reasoning

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"CryptoEdge/internal/domain"
	"CryptoEdge/internal/domain/models"
)

const (
	minConfidence     = 30
	maxConfidence     = 95
	defaultConfidence = 50

	// overrideMargin is how far the scores must disagree before the stated
	// direction is replaced.
	overrideMargin = 5

	maxAnalysisLen  = 500
	maxSummaryLen   = 300
	maxKeyFactors   = 5
	maxKeyFactorLen = 100
)

var (
	validate = validator.New()
	fenceRe  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// StripFences removes a markdown code fence wrapped around the payload.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ParseAnalysis decodes untrusted model output into a fully defaulted and
// range-checked Analysis. Only unparseable JSON is an error; every field-level
// problem is repaired.
func ParseAnalysis(raw string) (*models.Analysis, error) {
	text := StripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty content", domain.ErrInvalidReasoningOutput)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidReasoningOutput, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", domain.ErrInvalidReasoningOutput)
	}

	a := &models.Analysis{
		Direction:           models.Direction(enum(fields["direction"], "oneof=long short hold", string(models.DirectionHold))),
		Confidence:          clampConfidence(fields["confidence"]),
		MarketSentiment:     models.Sentiment(enum(fields["market_sentiment"], "oneof=bullish bearish neutral", string(models.SentimentNeutral))),
		RiskLevel:           models.RiskLevel(enum(fields["risk_level"], "oneof=low medium high", string(models.RiskMedium))),
		Analysis:            truncate(str(fields["analysis"]), maxAnalysisLen),
		KeyFactors:          keyFactors(fields["key_factors"]),
		TechnicalSummary:    truncate(str(fields["technical_summary"]), maxSummaryLen),
		LongScore:           number(fields["long_score"]),
		ShortScore:          number(fields["short_score"]),
		SuggestedEntry:      price(fields["suggested_entry"]),
		SuggestedStopLoss:   price(fields["suggested_stop_loss"]),
		SuggestedTakeProfit: price(fields["suggested_take_profit"]),
	}
	ApplyScoreOverride(a)
	return a, nil
}

// ApplyScoreOverride replaces the stated direction with the side whose score
// leads by more than overrideMargin. It only acts when both scores are present.
func ApplyScoreOverride(a *models.Analysis) {
	if a.LongScore == nil || a.ShortScore == nil {
		return
	}
	diff := *a.LongScore - *a.ShortScore
	if math.Abs(diff) <= overrideMargin {
		return
	}

	want := models.DirectionLong
	if diff < 0 {
		want = models.DirectionShort
	}
	if a.Direction != want {
		a.Direction = want
		a.Overridden = true
	}
}

func enum(v interface{}, rule, fallback string) string {
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if err := validate.Var(s, rule); err != nil || s == "" {
		return fallback
	}
	return s
}

func clampConfidence(v interface{}) float64 {
	c, ok := v.(float64)
	if !ok || math.IsNaN(c) {
		c = defaultConfidence
	}
	c = math.Max(minConfidence, math.Min(maxConfidence, c))
	rounded, _ := decimal.NewFromFloat(c).Round(1).Float64()
	return rounded
}

func number(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func price(v interface{}) *float64 {
	p := number(v)
	if p == nil || *p <= 0 {
		return nil
	}
	return p
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func keyFactors(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	if len(items) > maxKeyFactors {
		items = items[:maxKeyFactors]
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			s = fmt.Sprint(it)
		}
		out = append(out, truncate(s, maxKeyFactorLen))
	}
	return out
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
