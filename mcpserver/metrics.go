package mcpserver

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records tool call counts and latencies.
type Metrics struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reads    *prometheus.CounterVec
}

// NewMetrics creates tool metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neokit_mcp_tool_calls_total",
				Help: "Total number of MCP tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neokit_mcp_tool_duration_seconds",
				Help:    "MCP tool call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neokit_mcp_resource_reads_total",
				Help: "Total number of MCP resource reads by resource and outcome",
			},
			[]string{"resource", "outcome"},
		),
	}

	m.registry.MustRegister(m.calls, m.duration, m.reads)

	return m
}

func (m *Metrics) observeCall(tool, outcome string, elapsed time.Duration) {
	m.calls.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRead(resource, outcome string) {
	m.reads.WithLabelValues(resource, outcome).Inc()
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
