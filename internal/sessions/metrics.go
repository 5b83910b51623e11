package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Sessions created by GetOrCreate",
	}, []string{"manager"})

	metricEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_evicted_total",
		Help: "Sessions removed by the idle sweep",
	}, []string{"manager"})
)
