package metrics

import (
	"sync"

	"CryptoEdge/internal/domain/models"
	domrepo "CryptoEdge/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles      *prometheus.CounterVec
	signals     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	confidence  *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

var _ domrepo.Metrics = (*Recorder)(nil)

var (
	shared   *Recorder
	initOnce sync.Once
)

// New returns the process-wide recorder, registering its collectors on
// first use.
func New() *Recorder {
	initOnce.Do(func() {
		shared = newRecorder()
		prometheus.MustRegister(shared.cycles, shared.signals, shared.errorsTotal, shared.confidence, shared.latency)
	})
	return shared
}

func newRecorder() *Recorder {
	return &Recorder{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoedge_cycles_total",
				Help: "Generation cycles by result",
			},
			[]string{"result"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoedge_signals_total",
				Help: "Signals persisted by pair and direction",
			},
			[]string{"pair", "direction"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptoedge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		confidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptoedge_last_confidence",
				Help: "Confidence of the latest signal per pair",
			},
			[]string{"pair"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptoedge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle(result string) {
	r.cycles.WithLabelValues(result).Inc()
}

// RecordSignal counts a persisted signal.
func (r *Recorder) RecordSignal(pair string, direction models.Direction) {
	r.signals.WithLabelValues(pair, string(direction)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordConfidence(pair string, confidence float64) {
	r.confidence.WithLabelValues(pair).Set(confidence)
}
