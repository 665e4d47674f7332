package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// context keys shared with handlers
const (
	actionKey   = "io_action"
	instanceKey = "io_instance"
	outcomeKey  = "io_outcome"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of currently active HTTP requests",
		},
	)

	galleryAjaxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_ajax_requests_total",
			Help: "Gallery ajax requests by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	galleryUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_uploads_total",
			Help: "Accepted gallery uploads by resulting status",
		},
		[]string{"status"},
	)
)

// Metrics returns a gin middleware that collects Prometheus metrics
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint itself
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		activeRequests.Inc()

		c.Next()

		activeRequests.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)

		if action := c.GetString(actionKey); action != "" {
			outcome := c.GetString(outcomeKey)
			if outcome == "" {
				outcome = "ok"
				if c.Writer.Status() >= 400 {
					outcome = "error"
				}
			}
			galleryAjaxTotal.WithLabelValues(action, outcome).Inc()
		}
	}
}

// SetAction records the ajax action (and instance) for logging and metrics
func SetAction(c *gin.Context, action, instance string) {
	c.Set(actionKey, action)
	if instance != "" {
		c.Set(instanceKey, instance)
	}
}

// SetOutcome labels the ajax outcome ("ok", "rejected", "rate_limited", "invalid", "error")
func SetOutcome(c *gin.Context, outcome string) {
	c.Set(outcomeKey, outcome)
}

// RecordUpload counts an accepted upload by status (published, pending)
func RecordUpload(status string) {
	galleryUploadsTotal.WithLabelValues(status).Inc()
}
