// Package metrics holds the Prometheus counters for allocation activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	allocations          *prometheus.CounterVec
	deallocations        *prometheus.CounterVec
	bulkFailures         prometheus.Counter
	notificationsDropped prometheus.Counter
	penaltiesApplied     prometheus.Counter
}

// New creates and registers all counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostel_allocations_total",
			Help: "Room allocations committed, by source.",
		}, []string{"source"}),
		deallocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostel_deallocations_total",
			Help: "Seats released, by reason.",
		}, []string{"reason"}),
		bulkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostel_bulk_failures_total",
			Help: "Students left unallocated by bulk runs.",
		}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostel_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full.",
		}),
		penaltiesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostel_penalties_applied_total",
			Help: "Late payment penalties applied.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.allocations,
		m.deallocations,
		m.bulkFailures,
		m.notificationsDropped,
		m.penaltiesApplied,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Allocated(source string) {
	if m != nil {
		m.allocations.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) Released(reason string) {
	if m != nil {
		m.deallocations.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) BulkFailed(n int) {
	if m != nil {
		m.bulkFailures.Add(float64(n))
	}
}

func (m *Metrics) NotificationDropped() {
	if m != nil {
		m.notificationsDropped.Inc()
	}
}

func (m *Metrics) PenaltyApplied() {
	if m != nil {
		m.penaltiesApplied.Inc()
	}
}
