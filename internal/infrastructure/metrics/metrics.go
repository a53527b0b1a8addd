package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transition metrics
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec

	// Notification metrics
	Notifications        *prometheus.CounterVec
	NotificationDuration prometheus.Histogram
	OutboxPending        prometheus.Gauge
	OutboxReplays        *prometheus.CounterVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreRetries    prometheus.Counter

	// Cache metrics
	CacheLookups *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenses_transitions_total",
				Help: "Total status transition attempts by decision and outcome",
			},
			[]string{"decision", "outcome"},
		),
		TransitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenses_transition_duration_seconds",
				Help:    "Duration of status transitions including notification wait",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"decision"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenses_notifications_total",
				Help: "Total notification attempts by decision and outcome",
			},
			[]string{"decision", "outcome"},
		),
		NotificationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "expenses_notification_duration_seconds",
			Help:    "Duration of notification service calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "expenses_notification_outbox_pending",
			Help: "Undelivered notifications seen by the last replay pass",
		}),
		OutboxReplays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenses_notification_replays_total",
				Help: "Total notification replay attempts by outcome",
			},
			[]string{"outcome"},
		),

		StoreOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenses_store_operations_total",
				Help: "Total expense store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		StoreRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenses_store_retries_total",
			Help: "Total retried store writes after transient conflicts",
		}),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenses_cache_lookups_total",
				Help: "Total expense view cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordTransition records one transition attempt. Safe on a nil receiver.
func (m *Metrics) RecordTransition(decision, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(decision, outcome).Inc()
	m.TransitionDuration.WithLabelValues(decision).Observe(elapsed.Seconds())
}

// RecordNotification records one notification call. Safe on a nil receiver.
func (m *Metrics) RecordNotification(decision, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(decision, outcome).Inc()
	m.NotificationDuration.Observe(elapsed.Seconds())
}

// RecordReplay records one replayed event. Safe on a nil receiver.
func (m *Metrics) RecordReplay(outcome string) {
	if m == nil {
		return
	}
	m.OutboxReplays.WithLabelValues(outcome).Inc()
}

// SetOutboxPending sets the pending gauge. Safe on a nil receiver.
func (m *Metrics) SetOutboxPending(n int) {
	if m == nil {
		return
	}
	m.OutboxPending.Set(float64(n))
}

// RecordStoreOperation counts a store call. Safe on a nil receiver.
func (m *Metrics) RecordStoreOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(operation, status).Inc()
}

// RecordStoreRetry counts a retried write. Safe on a nil receiver.
func (m *Metrics) RecordStoreRetry() {
	if m == nil {
		return
	}
	m.StoreRetries.Inc()
}

// RecordCacheLookup counts a cache hit or miss. Safe on a nil receiver.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
