package vad

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_frames_total",
		Help: "Total audio frames classified",
	})

	metricStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_speech_starts_total",
		Help: "Total speech start events",
	})

	metricEnds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_speech_ends_total",
		Help: "Total speech end events",
	})

	metricMisfires = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_misfires_total",
		Help: "Speech bursts shorter than the start count",
	})

	metricClassifierErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_classifier_errors_total",
		Help: "Frames the classifier failed on (treated as silence)",
	})

	metricEventDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vad_event_drops_total",
		Help: "Events dropped due to slow consumer (channel backpressure)",
	})

	metricUtteranceMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vad_utterance_ms",
		Help:    "Captured utterance length (ms)",
		Buckets: prometheus.ExponentialBuckets(100, 1.6, 12),
	})
)
