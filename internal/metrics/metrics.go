// Package metrics registers the Prometheus collectors for the grading service
// and exposes them to Fiber.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GradingResults counts persisted reports by where their grade came from.
	GradingResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_results_total",
			Help: "Grading reports produced, by source (ai, fallback, demo)",
		},
		[]string{"source"},
	)

	// AIDuration times each provider call.
	AIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grading_ai_duration_seconds",
			Help:    "Duration of AI provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 30, 60},
		},
		[]string{"provider", "outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Middleware records request count and latency. Routes are labelled by their
// registered template (/api/reports/:id), never the raw path, to keep label
// cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
