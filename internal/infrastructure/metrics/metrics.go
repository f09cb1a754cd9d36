package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrms/backend/internal/domain/identity"
)

// Collector holds the Prometheus metrics for the server. It owns its own
// registry so repeated construction (tests, embedded use) never trips the
// default registry's duplicate check.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	creditDeductionsTotal *prometheus.CounterVec
	creditSweepDuration   prometheus.Histogram
	loginAttemptsTotal    *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	c.creditDeductionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_credit_deductions_total",
			Help: "Daily credit deduction attempts by outcome",
		},
		[]string{"outcome"},
	)

	c.creditSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hrms_credit_sweep_duration_seconds",
			Help:    "Duration of full credit deduction sweeps",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	c.loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrms_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.creditDeductionsTotal,
		c.creditSweepDuration,
		c.loginAttemptsTotal,
	)

	return c
}

// RecordDeduction implements billing.DeductionRecorder
func (c *Collector) RecordDeduction(outcome identity.DeductionOutcome) {
	c.creditDeductionsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordRunDuration implements billing.DeductionRecorder
func (c *Collector) RecordRunDuration(d time.Duration) {
	c.creditSweepDuration.Observe(d.Seconds())
}

// RecordLogin counts a login attempt. Result is "success", "failed" or
// "no_credits".
func (c *Collector) RecordLogin(result string) {
	c.loginAttemptsTotal.WithLabelValues(result).Inc()
}

// GinMiddleware returns middleware that records request count and duration
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(ctx.Writer.Status())

		c.httpRequestsTotal.WithLabelValues(ctx.Request.Method, endpoint, status).Inc()
		c.httpRequestDuration.WithLabelValues(ctx.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus scrape endpoint handler
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
