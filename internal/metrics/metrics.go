package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courier"

// Metrics groups the service's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	busPublished      prometheus.Counter
	busDropped        prometheus.Counter
	deliveries        prometheus.Counter
	sessionsActive    prometheus.Gauge
	commands          *prometheus.CounterVec
	scheduledPromoted prometheus.Counter
	scheduledFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		busPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bus_published_total",
			Help: "Events published on the event bus.",
		}),
		busDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bus_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deliveries_total",
			Help: "Frames written to client connections.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions_active",
			Help: "Currently registered sessions.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Inbound commands by type.",
		}, []string{"type"}),
		scheduledPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scheduler_promoted_total",
			Help: "Scheduled messages promoted to live messages.",
		}),
		scheduledFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scheduler_failures_total",
			Help: "Scheduled messages that failed to promote and will be retried.",
		}),
	}

	m.registry.MustRegister(
		m.busPublished, m.busDropped, m.deliveries, m.sessionsActive,
		m.commands, m.scheduledPromoted, m.scheduledFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry so other packages can add
// their own collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventPublished() {
	if m == nil {
		return
	}
	m.busPublished.Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.busDropped.Inc()
}

func (m *Metrics) FrameDelivered() {
	if m == nil {
		return
	}
	m.deliveries.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) Command(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

func (m *Metrics) ScheduledPromoted() {
	if m == nil {
		return
	}
	m.scheduledPromoted.Inc()
}

func (m *Metrics) ScheduledFailed() {
	if m == nil {
		return
	}
	m.scheduledFailures.Inc()
}
