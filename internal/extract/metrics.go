package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricExtractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "extract_documents_total",
		Help: "Resume extractions by result",
	}, []string{"result"})
	metricPages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "extract_pages",
		Help:    "Pages per extracted document",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
)
