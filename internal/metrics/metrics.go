// Package metrics holds the Prometheus collectors of the signaling server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ring"

var (
	UsersOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "users_online",
		Help:      "Joined users currently registered.",
	})

	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "signal_connections",
		Help:      "Open signaling WebSocket connections.",
	})

	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Coordinator events processed, by kind.",
	}, []string{"kind"})

	Calls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_total",
		Help:      "Call outcomes: requested, rejected, accepted, declined, timeout, ended.",
	}, []string{"outcome"})

	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_frames_total",
		Help:      "Outbound frames dropped on backpressure, by action.",
	}, []string{"action"})
)
