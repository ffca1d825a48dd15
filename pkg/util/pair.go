package util

import (
	"net/url"
	"strings"
)

// NormalizePair turns the URL forms of a pair ("btc-eur", "BTC%2FEUR",
// "BTC_EUR") into the canonical "BTC/EUR".
func NormalizePair(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "/", "_", "/").Replace(s)
}

// PairSlug is the inverse of NormalizePair for use in paths.
func PairSlug(pair string) string {
	return strings.ReplaceAll(pair, "/", "-")
}
