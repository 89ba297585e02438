package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPlaybacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_total",
		Help: "Playbacks by outcome",
	}, []string{"outcome"})

	metricActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playback_active",
		Help: "1 while a reply is being rendered",
	})

	metricDurationMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playback_duration_ms",
		Help:    "Wall time spent rendering a reply (ms)",
		Buckets: prometheus.ExponentialBuckets(100, 1.6, 14),
	})
)
