// Package rcmetrics defines the Prometheus instrumentation for the resolver,
// mutator, event log, and consumers. Registration is explicit: New takes a
// *prometheus.Registry built by the caller (cmd/routectl) rather than
// registering against the global default registry, so a process can run
// multiple instances (e.g. in tests) without collector name collisions.
package rcmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service exposes.
type Metrics struct {
	ResolveHits     *prometheus.CounterVec
	ResolveDuration *prometheus.HistogramVec

	MutationOutcomes *prometheus.CounterVec
	MutateDuration   *prometheus.HistogramVec

	PublishResults *prometheus.CounterVec

	ConsumerEvents *prometheus.CounterVec

	BreakerStateChanges *prometheus.CounterVec
}

// New constructs and registers every collector against reg. namespace is
// typically "routectl".
func New(reg *prometheus.Registry, namespace string) *Metrics {
	m := &Metrics{
		ResolveHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_results_total",
			Help:      "Route resolution outcomes by result kind.",
		}, []string{"result"}), // validation_error|cache_hit|cache_negative|store_hit|not_found|unavailable|shed

		ResolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time to resolve a route identifier to a URL.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),

		MutationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_outcomes_total",
			Help:      "Write-path outcomes by operation and outcome.",
		}, []string{"operation", "outcome"}), // operation=create|activate|deactivate

		MutateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutate_duration_seconds",
			Help:      "Time to execute a write-path operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		PublishResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_results_total",
			Help:      "Route event publish attempts by result.",
		}, []string{"result"}), // success|failure

		ConsumerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_events_total",
			Help:      "Consumer group events by group and disposition.",
		}, []string{"group", "disposition"}), // processed|retried

		BreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_state_changes_total",
			Help:      "Circuit breaker transitions by kernel and target state.",
		}, []string{"kernel", "state"}),
	}

	reg.MustRegister(
		m.ResolveHits,
		m.ResolveDuration,
		m.MutationOutcomes,
		m.MutateDuration,
		m.PublishResults,
		m.ConsumerEvents,
		m.BreakerStateChanges,
	)
	return m
}

// ObserveResolve records one Resolve call's outcome and duration.
func (m *Metrics) ObserveResolve(result string, d time.Duration) {
	m.ResolveHits.WithLabelValues(result).Inc()
	m.ResolveDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveMutation records one write-path call's outcome and duration.
func (m *Metrics) ObserveMutation(operation, outcome string, d time.Duration) {
	m.MutationOutcomes.WithLabelValues(operation, outcome).Inc()
	m.MutateDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObservePublish records a route event publish attempt.
func (m *Metrics) ObservePublish(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.PublishResults.WithLabelValues(result).Inc()
}

// ObserveConsumerEvent records one consumer group's disposition of a
// delivered event. The consumers report processed (handler succeeded) or
// retried (handler failed); no caller reports a dead-lettered disposition.
func (m *Metrics) ObserveConsumerEvent(group, disposition string) {
	m.ConsumerEvents.WithLabelValues(group, disposition).Inc()
}

// ObserveBreakerStateChange records a circuit breaker transition. Nothing in
// the repository calls it, so breaker_state_changes_total stays at zero.
func (m *Metrics) ObserveBreakerStateChange(kernel, state string) {
	m.BreakerStateChanges.WithLabelValues(kernel, state).Inc()
}
