package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delivery outcomes recorded by the notification dispatcher
const (
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
)

// Metrics holds every collector exported by the service. Each instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestDuration  *prometheus.HistogramVec
	EscalationsCreated   *prometheus.CounterVec
	EscalationsResolved  prometheus.Counter
	NotificationDelivery *prometheus.CounterVec
	NotificationLatency  prometheus.Histogram
	NotificationInFlight prometheus.Gauge
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "route", "status"},
		),
		EscalationsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escalations_created_total",
				Help: "Escalations created, by trigger",
			},
			[]string{"trigger"}, // automatic, manual
		),
		EscalationsResolved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "escalations_resolved_total",
				Help: "Escalations resolved",
			},
		),
		NotificationDelivery: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_deliveries_total",
				Help: "Outbound notification deliveries, by outcome",
			},
			[]string{"outcome"},
		),
		NotificationLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notification_delivery_seconds",
				Help:    "Time spent delivering one notification including retries",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		NotificationInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notification_deliveries_in_flight",
				Help: "Notification deliveries currently running",
			},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest observes one served request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordEscalation counts a created escalation
func (m *Metrics) RecordEscalation(trigger string) {
	m.EscalationsCreated.WithLabelValues(trigger).Inc()
}

// RecordResolution counts a resolved escalation
func (m *Metrics) RecordResolution() {
	m.EscalationsResolved.Inc()
}

// RecordDelivery counts one delivery outcome and its duration
func (m *Metrics) RecordDelivery(outcome string, duration time.Duration) {
	m.NotificationDelivery.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSent || outcome == OutcomeFailed {
		m.NotificationLatency.Observe(duration.Seconds())
	}
}
