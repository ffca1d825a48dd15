package metrics

import (
	"testing"

	"CryptoEdge/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New()
	assert.Same(t, r, New())

	r.RecordCycle("ok")
	r.RecordCycle("ok")
	r.RecordSignal("BTC/EUR", models.DirectionLong)
	r.RecordConfidence("BTC/EUR", 72)
	r.RecordError("storage")

	assert.InDelta(t, 2, testutil.ToFloat64(r.cycles.WithLabelValues("ok")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.signals.WithLabelValues("BTC/EUR", "long")), 1e-9)
	assert.InDelta(t, 72, testutil.ToFloat64(r.confidence.WithLabelValues("BTC/EUR")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.errorsTotal.WithLabelValues("storage")), 1e-9)
}
