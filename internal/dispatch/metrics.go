package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_commands_total",
		Help: "Command-shaped chat messages dispatched to the handler chain",
	})

	metricHandlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_handler_panics_total",
		Help: "Recovered panics inside feature handlers",
	}, []string{"handler"})
)
