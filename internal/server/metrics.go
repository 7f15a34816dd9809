// Package server - metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler is the "handler" label value used to partition metrics by
// the logical endpoint name rather than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// pipelineRunsTotal counts completed pipeline runs triggered over HTTP,
	// partitioned by final status.
	pipelineRunsTotal *prometheus.CounterVec

	// pipelineDurationSeconds records the wall-clock duration of each
	// HTTP-triggered pipeline run.
	pipelineDurationSeconds prometheus.Histogram

	// reportRequestsTotal counts /api/reports/generate requests, partitioned
	// by outcome: "ok", "invalid", or "error".
	reportRequestsTotal *prometheus.CounterVec

	// deliveryAttemptsTotal counts per-channel delivery attempts from
	// HTTP-triggered runs, partitioned by channel and outcome:
	// "delivered", "failed", or "skipped".
	deliveryAttemptsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default,
// keeping unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		pipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs triggered over HTTP, partitioned by final status.",
		}, []string{"status"}),

		pipelineDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "briefly",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of HTTP-triggered pipeline runs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}),

		reportRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "reports",
			Name:      "requests_total",
			Help:      "Total number of on-demand report generations, partitioned by outcome.",
		}, []string{"outcome"}),

		deliveryAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total number of per-channel delivery attempts, partitioned by channel and outcome.",
		}, []string{"channel", "outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "briefly",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
