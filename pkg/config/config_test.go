package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/EUR"}, c.Signals.Pairs)
	assert.Equal(t, time.Minute, c.Signals.Interval)
	assert.Equal(t, 60*time.Second, c.Signals.CycleTimeout)
	assert.Greater(t, c.Server.WriteTimeout, c.Signals.CycleTimeout)
	assert.Equal(t, "1h", c.Signals.CandleInterval)
	assert.Equal(t, 15*time.Second, c.Reasoning.Timeout)
	assert.Equal(t, 800, c.Reasoning.MaxTokens)
	assert.InDelta(t, 0.6, c.Reasoning.Temperature, 1e-9)
	assert.False(t, c.Reasoning.Disabled)
	assert.Equal(t, 5*time.Minute, c.Liquidity.CacheTTL)
	assert.Equal(t, 10*time.Minute, c.Learning.RebuildInterval)
	assert.Equal(t, "memory", c.Storage.Driver)
	assert.Equal(t, "signals.generated", c.Kafka.Topics.Signals)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no pairs", "storage:\n  driver: memory\n"},
		{"unknown driver", "signals:\n  pairs: [BTC/EUR]\nstorage:\n  driver: sqlite\n"},
		{"postgres without dsn", "signals:\n  pairs: [BTC/EUR]\nstorage:\n  driver: postgres\n"},
		{"kafka without brokers", "signals:\n  pairs: [BTC/EUR]\nstorage:\n  driver: memory\nkafka:\n  enabled: true\n"},
		{"interval too short", "signals:\n  pairs: [BTC/EUR]\n  interval: 10ms\nstorage:\n  driver: memory\n"},
		{"write timeout below cycle", "server:\n  write_timeout: 30s\nsignals:\n  pairs: [BTC/EUR]\n  cycle_timeout: 60s\nstorage:\n  driver: memory\n"},
		{"bad log level", "signals:\n  pairs: [BTC/EUR]\nstorage:\n  driver: memory\nlogging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("REASONING_API_KEY", "sk-test")
	t.Setenv("REASONING_ENABLED", "false")
	t.Setenv("SIGNAL_PAIRS", "BTC/USD, ETH/USD")
	t.Setenv("SIGNAL_INTERVAL", "2m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", c.Reasoning.APIKey)
	assert.True(t, c.Reasoning.Disabled)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, c.Signals.Pairs)
	assert.Equal(t, 2*time.Minute, c.Signals.Interval)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
}
