package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/projecthub/pkg/serrors"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projecthub",
		Subsystem: "requests",
		Name:      "operations_total",
		Help:      "Total number of workflow operations broken down by operation and result code.",
	}, []string{"operation", "result"})

	operationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "projecthub",
		Subsystem: "requests",
		Name:      "operation_latency_seconds",
		Help:      "Latency distribution for workflow operations, both phases included.",
		Buckets: []float64{
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10, 30,
		},
	}, []string{"operation"})

	projectionRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projecthub",
		Subsystem: "requests",
		Name:      "projection_refresh_total",
		Help:      "Total number of projection refetches broken down by view and result.",
	}, []string{"view", "result"})
)

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var be *serrors.BaseError
	if errors.As(err, &be) {
		return be.Code
	}
	var verrs serrors.ValidationErrors
	if errors.As(err, &verrs) {
		return "REQUESTS_VALIDATION"
	}
	return "error"
}

func recordOperation(operation string, start time.Time, err error) {
	operationsTotal.With(prometheus.Labels{"operation": operation, "result": resultLabel(err)}).Inc()
	operationLatency.With(prometheus.Labels{"operation": operation}).Observe(time.Since(start).Seconds())
}

func recordRefresh(view string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	projectionRefreshes.With(prometheus.Labels{"view": view, "result": result}).Inc()
}
