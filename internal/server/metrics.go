package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the service's operational counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	HandsCompleted prometheus.Counter
	ActionsApplied prometheus.Counter
	ActionTimeouts prometheus.Counter
	Sessions       prometheus.Gauge
}

// NewMetrics builds the registry. openTables and queuedPlayers are
// sampled on scrape.
func NewMetrics(openTables, queuedPlayers func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		HandsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ploroom_hands_completed_total",
			Help: "Hands played to completion across all tables.",
		}),
		ActionsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "ploroom_actions_applied_total",
			Help: "Betting actions accepted by the engine.",
		}),
		ActionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ploroom_action_timeouts_total",
			Help: "Decisions resolved by the action timer.",
		}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ploroom_sessions",
			Help: "Currently connected client sessions.",
		}),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ploroom_open_tables",
		Help: "Registered tables.",
	}, openTables)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ploroom_queued_players",
		Help: "Players waiting in matchmaking queues.",
	}, queuedPlayers)

	return m
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
