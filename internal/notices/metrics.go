package notices

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    metricSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "notices_subscribers",
        Help: "Connected notice subscribers",
    })
    metricSent = promauto.NewCounter(prometheus.CounterOpts{
        Name: "notices_sent_total",
        Help: "Messages written to subscribers",
    })
    metricDropped = promauto.NewCounter(prometheus.CounterOpts{
        Name: "notices_dropped_subscribers_total",
        Help: "Subscribers disconnected for falling behind",
    })
    metricRejected = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "notices_rejected_total",
        Help: "Subscription attempts rejected",
    }, []string{"reason"})
)
