package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat hub.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events handled by the hub.",
		},
		[]string{"event", "outcome"},
	)
	messagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages accepted.",
		},
	)
	droppedSendsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_dropped_sends_total",
			Help: "Total number of outbound frames dropped because a connection buffer was full.",
		},
	)
	handlerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_hub_handler_failures_total",
			Help: "Total number of hub handlers that panicked.",
		},
		[]string{"event"},
	)
	hubStoreSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_hub_store_size",
			Help: "Current size of the hub's in-memory stores.",
		},
		[]string{"store"},
	)
	sweepRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_hub_sweep_removed_total",
			Help: "Total number of entries removed by periodic sweeps.",
		},
		[]string{"sweep"},
	)
	archiveErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_archive_errors_total",
			Help: "Total number of failed archive writes.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		messagesTotal,
		droppedSendsTotal,
		handlerFailuresTotal,
		hubStoreSize,
		sweepRemovedTotal,
		archiveErrorsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

// IncWSEvent counts a handled event; outcome is "ok", "rejected" or "failed".
func IncWSEvent(event, outcome string) {
	wsEventsTotal.WithLabelValues(event, outcome).Inc()
}

func IncMessages() {
	messagesTotal.Inc()
}

func IncDroppedSend() {
	droppedSendsTotal.Inc()
}

func IncHandlerFailure(event string) {
	handlerFailuresTotal.WithLabelValues(event).Inc()
}

// SetStoreSizes publishes the hub's store sizes as gauges.
func SetStoreSizes(users, online, messages, typing int) {
	hubStoreSize.WithLabelValues("users").Set(float64(users))
	hubStoreSize.WithLabelValues("online_users").Set(float64(online))
	hubStoreSize.WithLabelValues("messages").Set(float64(messages))
	hubStoreSize.WithLabelValues("typing").Set(float64(typing))
}

func AddSweepRemoved(sweep string, n int) {
	if n > 0 {
		sweepRemovedTotal.WithLabelValues(sweep).Add(float64(n))
	}
}

func IncArchiveError() {
	archiveErrorsTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
