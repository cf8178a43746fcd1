package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	accountNumberCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "accounts_number_collisions_total",
			Help: "Generated account numbers rejected because they were already taken.",
		},
	)
	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Account communication requests handed to the messaging transport.",
		},
		[]string{"result"},
	)
	remoteFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_fetch_total",
			Help: "Calls to the loans and cards services by outcome.",
		},
		[]string{"service", "outcome"},
	)
	eventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Inbound events processed by channel and result.",
		},
		[]string{"channel", "result"},
	)
)

func Register() {
	prometheus.MustRegister(httpRequests, httpLatency, accountNumberCollisions, notificationsDispatched, remoteFetches, eventsConsumed)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request count and latency. The route template is used
// as the path label so query strings and ids do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		httpLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func IncAccountNumberCollision() {
	accountNumberCollisions.Inc()
}

func IncNotificationDispatched(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	notificationsDispatched.WithLabelValues(result).Inc()
}

func IncRemoteFetch(service, outcome string) {
	remoteFetches.WithLabelValues(service, outcome).Inc()
}

func IncEventConsumed(channel string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	eventsConsumed.WithLabelValues(channel, result).Inc()
}
