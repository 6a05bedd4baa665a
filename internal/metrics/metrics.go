package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	assignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetledger",
		Name:      "assignments_total",
		Help:      "Total number of assignment operations broken down by operation and result.",
	}, []string{"op", "result"})

	groupWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetledger",
		Name:      "group_writes_total",
		Help:      "Total number of asset group writes broken down by operation and result.",
	}, []string{"op", "result"})

	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetledger",
		Name:      "store_errors_total",
		Help:      "Total number of failed core operations broken down by error class.",
	}, []string{"class"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assetledger",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of API requests broken down by method and status class.",
	}, []string{"method", "result"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assetledger",
		Subsystem: "http",
		Name:      "latency_seconds",
		Help:      "Latency distribution for API requests.",
		Buckets: []float64{
			0.001, 0.005, 0.01, 0.05,
			0.1, 0.5, 1, 5,
		},
	}, []string{"method"})
)

// RecordAssignment counts an assignment operation. class is empty on success.
func RecordAssignment(op, class string) {
	assignments.WithLabelValues(op, result(class)).Inc()
	recordError(class)
}

// RecordGroupWrite counts a group mutation. class is empty on success.
func RecordGroupWrite(op, class string) {
	groupWrites.WithLabelValues(op, result(class)).Inc()
	recordError(class)
}

// RecordRequest counts a finished API request.
func RecordRequest(method string, status int, seconds float64) {
	httpRequests.WithLabelValues(method, statusClass(status)).Inc()
	httpLatency.WithLabelValues(method).Observe(seconds)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func recordError(class string) {
	if class != "" {
		storeErrors.WithLabelValues(class).Inc()
	}
}

func result(class string) string {
	if class == "" {
		return "ok"
	}
	return "error"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
