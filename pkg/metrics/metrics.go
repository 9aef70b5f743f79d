// Package metrics holds the Prometheus collectors for gateway sessions.
//
// A nil *Metrics is valid everywhere and records nothing, so library users
// who do not scrape metrics pay no cost.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the request and observation collectors.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	ObservationsActive prometheus.Gauge
	NotificationsTotal prometheus.Counter
	ConnectionResets   prometheus.Counter
	BridgePublishes    *prometheus.CounterVec
	BridgeResubscribes prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tradfri",
				Subsystem: "session",
				Name:      "requests_total",
				Help:      "Total number of requests sent to the gateway",
			},
			[]string{"method", "result"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tradfri",
				Subsystem: "session",
				Name:      "request_duration_seconds",
				Help:      "Gateway request round-trip time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tradfri",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of failed exchanges by kind",
			},
			[]string{"kind"},
		),

		ObservationsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tradfri",
				Subsystem: "observe",
				Name:      "active",
				Help:      "Number of live observations",
			},
		),

		NotificationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tradfri",
				Subsystem: "observe",
				Name:      "notifications_total",
				Help:      "Total number of observation updates received",
			},
		),

		ConnectionResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tradfri",
				Subsystem: "session",
				Name:      "connection_resets_total",
				Help:      "Total number of connection resets after failed exchanges",
			},
		),

		BridgePublishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tradfri",
				Subsystem: "bridge",
				Name:      "publishes_total",
				Help:      "Total number of MQTT publishes by result",
			},
			[]string{"result"},
		),

		BridgeResubscribes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tradfri",
				Subsystem: "bridge",
				Name:      "resubscribes_total",
				Help:      "Total number of observation restarts",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.ErrorsTotal,
			m.ObservationsActive,
			m.NotificationsTotal,
			m.ConnectionResets,
			m.BridgePublishes,
			m.BridgeResubscribes,
		)
	}
	return m
}

// ObserveRequest records one finished exchange. result is "ok" or an error kind.
func (m *Metrics) ObserveRequest(method, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, result).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
	if result != "ok" {
		m.ErrorsTotal.WithLabelValues(result).Inc()
	}
}

// ObservationStarted increments the live observation gauge.
func (m *Metrics) ObservationStarted() {
	if m == nil {
		return
	}
	m.ObservationsActive.Inc()
}

// ObservationFinished decrements the live observation gauge.
func (m *Metrics) ObservationFinished() {
	if m == nil {
		return
	}
	m.ObservationsActive.Dec()
}

// Notification counts one observation update.
func (m *Metrics) Notification() {
	if m == nil {
		return
	}
	m.NotificationsTotal.Inc()
}

// ConnectionReset counts one dropped connection.
func (m *Metrics) ConnectionReset() {
	if m == nil {
		return
	}
	m.ConnectionResets.Inc()
}

// Published counts one bridge publish. result is "ok" or "error".
func (m *Metrics) Published(result string) {
	if m == nil {
		return
	}
	m.BridgePublishes.WithLabelValues(result).Inc()
}

// Resubscribed counts one bridge observation restart.
func (m *Metrics) Resubscribed() {
	if m == nil {
		return
	}
	m.BridgeResubscribes.Inc()
}
