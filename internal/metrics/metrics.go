// Package metrics holds the Prometheus collectors shared by the connector and
// the stub backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeRejected marks a login the backend refused.
	OutcomeRejected = "rejected"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neosconnect_operations_total",
		Help: "Total connector operations by operation name and outcome.",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neosconnect_operation_duration_seconds",
		Help:    "Connector operation duration in seconds, token acquisition and decoding included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	decodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neosconnect_decode_failures_total",
		Help: "Responses that failed to decode, by operation and error kind.",
	}, []string{"operation", "kind"})

	stubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "neosstub_requests_total",
		Help: "Total stub backend HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	stubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neosstub_request_duration_seconds",
		Help:    "Stub backend request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// ObserveOperation records one finished connector operation.
func ObserveOperation(operation, outcome string, duration time.Duration) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDecodeFailure records a response that could not be decoded. kind is
// "decode" or "field_missing".
func RecordDecodeFailure(operation, kind string) {
	decodeFailuresTotal.WithLabelValues(operation, kind).Inc()
}

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		stubRequestsTotal.WithLabelValues(method, path, status).Inc()
		stubRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// GinHandler returns a Gin handler that serves Prometheus metrics.
func GinHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Handler serves Prometheus metrics on a plain net/http mux.
func Handler() http.Handler {
	return promhttp.Handler()
}
