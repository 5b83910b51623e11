package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connects_total",
		Help: "Successful websocket connects",
	})

	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_reconnects_scheduled_total",
		Help: "Reconnect attempts scheduled after close or dial failure",
	})

	metricConnectMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_connect_ms",
		Help:    "Websocket dial latency",
		Buckets: prometheus.ExponentialBuckets(10, 1.6, 10),
	})

	metricFramesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_frames_in_total",
		Help: "Inbound frames read from the wire",
	})

	metricSendsOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sends_total",
		Help: "Outbound frames written",
	})

	metricSendsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sends_dropped_total",
		Help: "Outbound frames dropped while disconnected or failed mid-write",
	})
)
