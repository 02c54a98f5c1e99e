// Package metrics exposes prometheus instruments for the HTTP surface and
// the messaging fan-out.
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
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "libris",
		Name:      "messages_sent_total",
		Help:      "Messages persisted, by message type.",
	}, []string{"type"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "libris",
		Name:      "notifications_total",
		Help:      "Realtime notification attempts, by outcome.",
	}, []string{"outcome"})

	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "libris",
		Name:      "websocket_connections",
		Help:      "Currently registered websocket clients.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "libris",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// Middleware records request latency labelled by the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
