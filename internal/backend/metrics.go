package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_requests_total",
		Help: "Turn submissions by input kind and result",
	}, []string{"input", "result"})

	metricRoundTripMS = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "backend_round_trip_ms",
		Help:    "Submission start to decoded response metadata (ms)",
		Buckets: prometheus.ExponentialBuckets(50, 1.6, 14),
	})

	metricRequestBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "backend_request_bytes",
		Help:    "Multipart request body size",
		Buckets: prometheus.ExponentialBuckets(256, 4, 10),
	})
)
