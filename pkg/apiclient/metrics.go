package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projecthub",
		Subsystem: "apiclient",
		Name:      "calls_total",
		Help:      "Total number of backend calls broken down by method and status.",
	}, []string{"method", "status"})

	callLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "projecthub",
		Subsystem: "apiclient",
		Name:      "latency_seconds",
		Help:      "Latency distribution for backend calls.",
		Buckets: []float64{
			0.005, 0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"method", "status"})
)

func observe(method, status string, latency time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"status": status,
	}
	callsTotal.With(labels).Inc()
	callLatency.With(labels).Observe(latency.Seconds())
}
