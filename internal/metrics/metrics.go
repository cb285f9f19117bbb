// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons used with FramesDropped.
const (
	ReasonMalformed    = "malformed"
	ReasonNotMember    = "not_member"
	ReasonBackpressure = "backpressure"
	ReasonClosed       = "closed"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Name:      "connections",
		Help:      "Open WebSocket connections.",
	})
	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Name:      "rooms",
		Help:      "Rooms currently held by the registry.",
	})
	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "chat_messages_total",
		Help:      "Chat messages fanned out to a room.",
	})
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "frames_dropped_total",
		Help:      "Inbound or outbound frames that were dropped, by reason.",
	}, []string{"reason"})
	Kicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "kicks_total",
		Help:      "Sessions disconnected by the backpressure policy.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
