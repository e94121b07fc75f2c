package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine exposes counters and histograms for booking and calendar operations.
// A nil *Engine is valid and records nothing.
type Engine struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	publishFailures prometheus.Counter
	cache           *prometheus.CounterVec
}

func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by outcome",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "engine",
			Name:      "retries_total",
			Help:      "Check-then-write units retried after a transient store failure",
		}, []string{"operation"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "engine",
			Name:      "conflicts_total",
			Help:      "Rejected reservations by what occupied the interval",
		}, []string{"source"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "notify",
			Name:      "publish_failures_total",
			Help:      "Status change events that could not be handed to the publisher",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "calendar",
			Name:      "week_cache_total",
			Help:      "Week view cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operations, m.latency, m.retries, m.conflicts, m.publishFailures, m.cache)
	return m
}

func (m *Engine) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(seconds)
}

func (m *Engine) ObserveRetry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

func (m *Engine) ObserveConflict(source string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(source).Inc()
}

func (m *Engine) ObservePublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Engine) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}
