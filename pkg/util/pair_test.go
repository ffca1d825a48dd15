package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePair(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTC-EUR", "BTC/EUR"},
		{"btc-eur", "BTC/EUR"},
		{"BTC%2FEUR", "BTC/EUR"},
		{"ETH_USD", "ETH/USD"},
		{"ETH/USD", "ETH/USD"},
		{" eth-usd ", "ETH/USD"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePair(tt.in))
		})
	}
	assert.Equal(t, "BTC-EUR", PairSlug("BTC/EUR"))
}
