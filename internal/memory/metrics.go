package memory

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes conversation memory behaviour to Prometheus. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	recorded        prometheus.Counter
	evicted         prometheus.Counter
	folds           *prometheus.CounterVec
	windowTokens    prometheus.Gauge
	windowExchanges prometheus.Gauge
}

// NewMetrics registers the memory metrics on reg. A nil reg gets a fresh
// private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docky",
			Subsystem: "memory",
			Name:      "exchanges_recorded_total",
			Help:      "Exchanges recorded into conversation memory.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "docky",
			Subsystem: "memory",
			Name:      "evicted_exchanges_total",
			Help:      "Exchanges evicted from the verbatim window.",
		}),
		folds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docky",
			Subsystem: "memory",
			Name:      "folds_total",
			Help:      "Summary folds by result (ok or degraded).",
		}, []string{"result"}),
		windowTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docky",
			Subsystem: "memory",
			Name:      "window_tokens",
			Help:      "Token cost of the verbatim window.",
		}),
		windowExchanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "docky",
			Subsystem: "memory",
			Name:      "window_exchanges",
			Help:      "Exchanges held in the verbatim window.",
		}),
	}
	reg.MustRegister(m.recorded, m.evicted, m.folds, m.windowTokens, m.windowExchanges)
	return m
}

func (m *Metrics) exchangeRecorded() {
	if m != nil {
		m.recorded.Inc()
	}
}

func (m *Metrics) exchangesEvicted(n int) {
	if m != nil {
		m.evicted.Add(float64(n))
	}
}

func (m *Metrics) folded(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "degraded"
	}
	m.folds.WithLabelValues(result).Inc()
}

func (m *Metrics) window(exchanges, tokens int) {
	if m != nil {
		m.windowExchanges.Set(float64(exchanges))
		m.windowTokens.Set(float64(tokens))
	}
}
