package sync

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/huykn/mutation-cache/types"
)

// Metrics holds Prometheus metrics for Apply calls.
type Metrics struct {
	applies   prometheus.Counter
	failures  *prometheus.CounterVec
	entries   *prometheus.CounterVec
	anomalies prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics creates the synchronizer metrics and registers them with reg.
// Collectors already registered under the same names are reused, so several
// synchronizers can share one registry.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		applies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "applies_total",
			Help:      "Total number of effect descriptors applied",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "apply_failures_total",
			Help:      "Total number of apply calls abandoned because the store failed, by step",
		}, []string{"step"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "entries_total",
			Help:      "Total number of cache entries affected, by action",
		}, []string{"action"}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "malformed_patterns_total",
			Help:      "Total number of keys or patterns that can never match",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "apply_duration_seconds",
			Help:      "Duration of apply calls",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	var err error
	if m.applies, err = register(reg, m.applies); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, m.failures); err != nil {
		return nil, err
	}
	if m.entries, err = register(reg, m.entries); err != nil {
		return nil, err
	}
	if m.anomalies, err = register(reg, m.anomalies); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}

	// Export every action at zero so rates work before the first apply.
	for _, a := range types.Actions {
		m.entries.WithLabelValues(string(a))
		m.failures.WithLabelValues(string(a))
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) recordApply(r Report) {
	if m == nil {
		return
	}
	m.applies.Inc()
	m.entries.WithLabelValues(string(types.Update)).Add(float64(r.Updated))
	m.entries.WithLabelValues(string(types.Invalidate)).Add(float64(r.Invalidated))
	m.entries.WithLabelValues(string(types.Remove)).Add(float64(r.Removed))
	m.duration.Observe(r.Duration.Seconds())
}

func (m *Metrics) recordFailure(step types.Action) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(step)).Inc()
}

func (m *Metrics) recordAnomaly() {
	if m == nil {
		return
	}
	m.anomalies.Inc()
}
