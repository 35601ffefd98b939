package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TransactionsCheckedIn prometheus.Counter
	ContainerSaves        prometheus.Counter
	IncidentsRegistered   prometheus.Counter
	IncidentsResolved     *prometheus.CounterVec
	Transitions           *prometheus.CounterVec
	ConcurrencyConflicts  prometheus.Counter
	OrderSyncFailures     prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransactionsCheckedIn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "countroom_transactions_checked_in_total",
			Help: "Total number of transactions created at checkin",
		}),
		ContainerSaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "countroom_container_saves_total",
			Help: "Total number of container save operations",
		}),
		IncidentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "countroom_incidents_registered_total",
			Help: "Total number of incidents registered",
		}),
		IncidentsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "countroom_incidents_resolved_total",
			Help: "Total number of incidents resolved, by target status",
		}, []string{"status"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "countroom_transitions_total",
			Help: "Total number of lifecycle transitions, by target state",
		}, []string{"to"}),
		ConcurrencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "countroom_concurrency_conflicts_total",
			Help: "Total number of optimistic-concurrency conflicts surfaced to callers",
		}),
		OrderSyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "countroom_order_sync_failures_total",
			Help: "Total number of best-effort order status sync failures",
		}),
	}
}

// IncrementTransition records a lifecycle transition toward the given state.
func (m *Metrics) IncrementTransition(to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to).Inc()
}

// IncrementIncidentResolved records an incident resolution to the given status.
func (m *Metrics) IncrementIncidentResolved(status string) {
	if m == nil {
		return
	}
	m.IncidentsResolved.WithLabelValues(status).Inc()
}
