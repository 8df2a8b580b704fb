package memory

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordWindowAndFolds(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := NewMetrics(reg)
	sum := &stubSummarizer{}
	m := newTestManager(t, sum, WithMetrics(mt))

	record(m, "a", 40)
	record(m, "b", 40)
	sum.fail = true
	record(m, "c", 20)

	assert.Equal(t, 3.0, testutil.ToFloat64(mt.recorded))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.evicted))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.folds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.folds.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.windowExchanges))
	assert.Equal(t, 20.0, testutil.ToFloat64(mt.windowTokens))

	n, err := testutil.GatherAndCount(reg, "docky_memory_folds_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var mt *Metrics
	mt.exchangeRecorded()
	mt.exchangesEvicted(2)
	mt.folded(false)
	mt.window(1, 1)
}
