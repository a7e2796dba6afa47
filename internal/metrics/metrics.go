package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PartyOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aimdot",
		Name:      "party_operations_total",
		Help:      "Party operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aimdot",
		Name:      "party_notifications_total",
		Help:      "Party notification deliveries by notifier, mode and outcome.",
	}, []string{"notifier", "mode", "outcome"})

	ChatEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aimdot",
		Name:      "chat_events_total",
		Help:      "Inbound chat events by kind.",
	}, []string{"kind"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aimdot",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "aimdot",
		Name:      "live_clients",
		Help:      "Connected dashboard websocket clients.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
