package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages stored, by body kind",
	}, []string{"kind"})

	MessagesDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_deleted_total",
		Help: "Delete operations, by mode (me, purge, everyone)",
	}, []string{"mode"})

	UploadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_media_upload_failures_total",
		Help: "Blob uploads that did not complete",
	})

	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_subscriptions",
		Help: "Live conversation subscriptions held by this instance",
	})

	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func Init() {
	prometheus.MustRegister(MessagesSent, MessagesDeleted, UploadFailures, ActiveSubscriptions, Connections, RequestDuration)
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		RequestDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(c.Response().StatusCode())).
			Observe(time.Since(start).Seconds())
		return err
	}
}
