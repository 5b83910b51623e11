package rooms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRoomsKnown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rooms_created_total",
		Help: "Room records created on first observation",
	})

	metricMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rooms_malformed_events_total",
		Help: "Inbound events dropped for missing required fields",
	})
)
