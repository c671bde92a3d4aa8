package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	contactSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact form submissions",
		},
		[]string{"status"}, // accepted, rejected, failed
	)

	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_store_operations_total",
			Help: "Total number of submission store operations",
		},
		[]string{"operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "submission_store_operation_duration_seconds",
			Help:    "Submission store operation duration in seconds, queue wait included",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	realtimeDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_dropped_total",
			Help: "Change messages not delivered because a subscriber buffer was full",
		},
		[]string{"event_type"},
	)

	viewsMounted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "submission_view_mounted",
			Help: "Number of currently mounted submission views",
		},
	)
)

// GinMiddleware records request counts and latencies per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, statusCode).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordContactSubmission records the outcome of an intake submission.
func RecordContactSubmission(status string) {
	contactSubmissionsTotal.WithLabelValues(status).Inc()
}

// RecordStoreOperation records one store operation.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storeOperationsTotal.WithLabelValues(operation, status).Inc()
	storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDroppedEvent counts a change message a subscriber missed.
func RecordDroppedEvent(eventType string) {
	realtimeDroppedTotal.WithLabelValues(eventType).Inc()
}

// ViewMounted tracks view lifecycle transitions.
func ViewMounted(mounted bool) {
	if mounted {
		viewsMounted.Inc()
		return
	}
	viewsMounted.Dec()
}
