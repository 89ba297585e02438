package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orch_state_transitions_total",
		Help: "Turn controller state transitions",
	}, []string{"from", "to"})

	metricSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "turn_submissions_total",
		Help: "Submissions by input kind and outcome",
	}, []string{"input", "outcome"})

	metricRefusedWhilePlaying = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orch_refused_while_playing_total",
		Help: "Submissions refused because the assistant was playing",
	})

	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orch_queue_depth",
		Help: "Inputs waiting for the in-flight submission",
	})

	metricDetectorErrored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orch_detector_errored",
		Help: "1 when speech detection failed to initialise",
	})

	metricTurnLatencyMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orch_turn_latency_ms",
		Help:    "Recorded assistant latency per turn (ms)",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 14),
	})
)
