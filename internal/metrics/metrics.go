package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operational counters for the messaging path. The push counters track the
// best-effort side of the protocol: a dropped push is not an error, the peer
// recovers the state on its next history fetch.
var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Number of messages durably stored.",
	})

	PushEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_push_events_total",
		Help: "Number of realtime events delivered to a live connection, by event name.",
	}, []string{"event"})

	PushDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_push_dropped_total",
		Help: "Number of realtime events dropped because the target had no usable connection.",
	})

	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Number of live websocket connections.",
	})
)
