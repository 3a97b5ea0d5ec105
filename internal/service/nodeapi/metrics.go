package nodeapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for node registry operations.
type Metrics struct {
	requests *prometheus.CounterVec
	nodes    prometheus.Gauge
}

// NewMetrics creates and registers node registry metrics with the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultline_node_registry_requests_total",
			Help: "Total number of node registry requests by operation and status code",
		}, []string{"op", "code"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "faultline_node_registry_nodes",
			Help: "Number of registered nodes at the last listing",
		}),
	}

	registry.MustRegister(m.requests, m.nodes)
	return m
}

// Request counts one answered request.
func (m *Metrics) Request(op string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, strconv.Itoa(code)).Inc()
}

// Listed records the size of the latest listing.
func (m *Metrics) Listed(n int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(n))
}
