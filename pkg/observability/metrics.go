package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the explorer engine
type Collector struct {
	registry *prometheus.Registry

	// Flow metrics (initial_load, search, expand, create)
	FlowRequests *prometheus.CounterVec
	FlowDuration *prometheus.HistogramVec

	// Store metrics
	MergesApplied     prometheus.Counter
	ReplacesApplied   prometheus.Counter
	StaleDiscarded    prometheus.Counter
	ExpansionsSkipped prometheus.Counter

	// Graph size
	GraphNodes prometheus.Gauge
	GraphLinks prometheus.Gauge
}

// NewCollector creates a metrics collector with its own registry so repeated
// construction in tests never double-registers
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	flowRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_requests_total",
			Help:      "Total number of data-fetching flow executions",
		},
		[]string{"flow", "status"},
	)

	flowDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Flow execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"flow"},
	)

	mergesApplied := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_applied_total",
			Help:      "Total number of incremental merges applied to the graph state",
		},
	)

	replacesApplied := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replaces_applied_total",
			Help:      "Total number of wholesale graph state replacements",
		},
	)

	staleDiscarded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Responses discarded because a newer replace-driving request already applied",
		},
	)

	expansionsSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_skipped_total",
			Help:      "Expansion requests skipped because the node was already expanded",
		},
	)

	graphNodes := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in the canonical graph state",
		},
	)

	graphLinks := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_links",
			Help:      "Number of links in the canonical graph state",
		},
	)

	registry.MustRegister(
		flowRequests,
		flowDuration,
		mergesApplied,
		replacesApplied,
		staleDiscarded,
		expansionsSkipped,
		graphNodes,
		graphLinks,
	)

	return &Collector{
		registry:          registry,
		FlowRequests:      flowRequests,
		FlowDuration:      flowDuration,
		MergesApplied:     mergesApplied,
		ReplacesApplied:   replacesApplied,
		StaleDiscarded:    staleDiscarded,
		ExpansionsSkipped: expansionsSkipped,
		GraphNodes:        graphNodes,
		GraphLinks:        graphLinks,
	}
}

// ObserveFlow records one flow execution
func (c *Collector) ObserveFlow(flow string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.FlowRequests.WithLabelValues(flow, status).Inc()
	c.FlowDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// SetGraphSize records the canonical graph dimensions
func (c *Collector) SetGraphSize(nodes, links int) {
	c.GraphNodes.Set(float64(nodes))
	c.GraphLinks.Set(float64(links))
}

// Handler returns an HTTP handler exposing this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
