package turn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricWindowsArmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turn_debounce_armed_total",
		Help: "Debounce windows armed by a speech end",
	})

	metricWindowsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "turn_debounce_cancelled_total",
		Help: "Debounce windows cancelled by renewed speech",
	})

	metricOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turn_debounce_outcomes_total",
		Help: "Debounce window outcomes",
	}, []string{"outcome"})
)
