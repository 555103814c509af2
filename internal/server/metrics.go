package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments for one server. Each Server owns
// its own registry so multiple instances in one process never collide on
// registration.
type metrics struct {
	activeSessions    prometheus.Gauge
	connectionsTotal  prometheus.Counter
	messagesReceived  prometheus.Counter
	messagesSent      prometheus.Counter
	eventsBroadcast   prometheus.Counter
	sendFailures      prometheus.Counter
	broadcastDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "active_sessions",
			Help:      "Number of connected WebSocket sessions",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Total number of WebSocket connections accepted",
		}),

		messagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "messages_received_total",
			Help:      "Total number of envelopes received from clients",
		}),

		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "messages_sent_total",
			Help:      "Total number of envelopes sent to clients",
		}),

		eventsBroadcast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "events_broadcast_total",
			Help:      "Total number of events fanned out to sessions",
		}),

		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "send_failures_total",
			Help:      "Total number of failed envelope deliveries",
		}),

		broadcastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "obsws",
			Subsystem: "server",
			Name:      "broadcast_duration_seconds",
			Help:      "Time spent delivering one event to all subscribed sessions",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
