// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rfq"

var (
	// HTTPRequests считает HTTP-запросы по методу, маршруту и коду ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	// HTTPDuration - длительность обработки запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Transitions считает переходы статусов сущностей.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Committed status transitions by entity and target status.",
	}, []string{"entity", "to"})

	// SweepRows считает строки, обработанные задачами истечения срока.
	SweepRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_rows_total",
		Help:      "Rows handled by expiry sweeps by job and result.",
	}, []string{"job", "result"})

	// Notifications считает уведомления по каналу и результату.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications by delivery driver and result.",
	}, []string{"driver", "result"})
)

// Handler отдает метрики в формате prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
