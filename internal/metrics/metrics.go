// Package metrics provides Prometheus metrics for standupbot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	registry *prometheus.Registry

	// Event loop
	EventsTotal   *prometheus.CounterVec
	EventsDropped prometheus.Counter
	PollInterval  prometheus.Gauge

	// Commands
	CommandsTotal        *prometheus.CounterVec
	ConversationsCurrent prometheus.Gauge

	// Transport
	TransportErrorsTotal prometheus.Counter
	ConnectAttemptsTotal prometheus.Counter
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "standupbot_events_total",
				Help: "Real-time events read, by outcome (handled, ignored, dropped)",
			},
			[]string{"outcome"},
		),
		EventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "standupbot_events_dropped_total",
				Help: "Direct messages discarded because another command was handled in the same poll cycle",
			},
		),
		PollInterval: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "standupbot_poll_interval_seconds",
				Help: "Current delay between event polls",
			},
		),
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "standupbot_commands_total",
				Help: "Commands handled, by command and status",
			},
			[]string{"command", "status"},
		),
		ConversationsCurrent: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "standupbot_conversations",
				Help: "Number of user conversations held in memory",
			},
		),
		TransportErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "standupbot_transport_errors_total",
				Help: "Failures talking to Slack inside the event loop",
			},
		),
		ConnectAttemptsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "standupbot_connect_attempts_total",
				Help: "Real-time connection attempts, including the first",
			},
		),
	}
}

// RecordCommand counts a handled command.
func (m *Metrics) RecordCommand(command string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
