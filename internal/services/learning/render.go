package learning

import (
	"fmt"
	"strings"
	"time"

	"CryptoEdge/internal/domain/models"
)

const placeholderDigest = "# Agent Learning Memory\n\nNo closed trades yet. No patterns to learn from.\n"

var zoneRanges = map[string]string{
	zoneOversold:   "(<30)",
	zoneNeutral:    "(30-70)",
	zoneOverbought: "(>70)",
}

const noLessons = "Not enough data yet to derive lessons. Need at least 3 trades per category."

func signed(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func bucketLine(label string, b models.Bucket, withPnL bool) string {
	line := fmt.Sprintf("- %s: %.0f%% win rate (%dW/%dL)", label, b.WinRate(), b.Wins, b.Losses())
	if withPnL {
		line += ", P&L: " + signed(b.PnL)
	}
	return line
}

// render formats the digest as the Markdown document handed to the model.
func render(d *models.Digest) string {
	if d.TotalTrades == 0 {
		return placeholderDigest
	}

	var b strings.Builder
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	w("# Agent Learning Memory")
	w("")
	w("Last updated: %s | Total closed trades: %d", d.GeneratedAt.UTC().Format(time.RFC3339), d.TotalTrades)
	w("")

	w("## Overall Performance")
	w("- Win rate: %.1f%% (%dW / %dL)", d.Overall.WinRate(), d.Overall.Wins, d.Overall.Losses())
	w("- Total P&L: %s", signed(d.Overall.PnL))

	w("")
	w("## Performance by Pair")
	for _, p := range d.ByPair {
		w("%s", bucketLine(p.Name, p, true))
	}

	w("")
	w("## Performance by Direction")
	for _, p := range d.ByDirection {
		w("%s", bucketLine(strings.ToUpper(p.Name), p, true))
	}

	if len(d.ByRSIZone) > 0 {
		w("")
		w("## Performance by RSI Zone at Entry")
		for _, p := range d.ByRSIZone {
			w("%s", bucketLine("RSI "+p.Name+" "+zoneRanges[p.Name], p, false))
		}
	}

	if len(d.ByConfidence) > 0 {
		w("")
		w("## Performance by Signal Confidence")
		for _, p := range d.ByConfidence {
			w("%s", bucketLine("Confidence "+p.Name, p, false))
		}
	}

	w("")
	w("## Recent Trades (last %d)", len(d.Recent))
	for _, r := range d.Recent {
		result := "LOSS"
		if r.PnL > 0 {
			result = "WIN"
		}
		rsi := "?"
		if r.RSI != nil {
			rsi = fmt.Sprintf("%.0f", *r.RSI)
		}
		w("- %s %s -> %s (%s) | RSI: %s", r.Pair, strings.ToUpper(string(r.Direction)), result, signed(r.PnL), rsi)
	}

	w("")
	w("## Key Lessons (auto-derived)")
	if len(d.Lessons) == 0 {
		w("- %s", noLessons)
	}
	for _, l := range d.Lessons {
		w("- %s", l)
	}

	return b.String()
}
