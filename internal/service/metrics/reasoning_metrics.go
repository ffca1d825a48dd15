package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ReasoningLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptoedge",
			Subsystem: "reasoning",
			Name:      "latency_seconds",
			Help:      "Latency of reasoning model calls by outcome",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"outcome"},
	)

	ReasoningTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptoedge",
			Subsystem: "reasoning",
			Name:      "tokens_total",
			Help:      "Total tokens reported by the reasoning model",
		},
		[]string{"model"},
	)

	ReasoningOverrides = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cryptoedge",
			Subsystem: "reasoning",
			Name:      "direction_overrides_total",
			Help:      "Analyses whose stated direction was replaced by the higher score",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ReasoningLatency, ReasoningTokens, ReasoningOverrides)
	})
}
