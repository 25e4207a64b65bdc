package http

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provide HTTP status code counts for the /metrics endpoint.
type Metrics struct {
	registry   *prometheus.Registry
	StatusCode *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance with its own registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StatusCode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "status_code",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(m.StatusCode)
	return m
}

// Handler returns the handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) onResponse(req *http.Request, statusCode int) {
	if m == nil {
		return
	}
	m.StatusCode.WithLabelValues(req.Method, fmt.Sprint(statusCode)).Inc()
}
