package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects engine-level prometheus metrics.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	NodeExecutions *prometheus.CounterVec
	NodeRetries    prometheus.Counter
}

// NewMetrics creates and registers the engine metrics. A nil registerer
// yields unregistered metrics, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgrid_workflow_runs_total",
			Help: "Workflow runs by terminal status.",
		}, []string{"status"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowgrid_workflow_run_duration_seconds",
			Help:    "Wall time of workflow runs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		NodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgrid_node_executions_total",
			Help: "Node executions by node type and outcome.",
		}, []string{"node_type", "status"}),
		NodeRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowgrid_node_retries_total",
			Help: "Node re-execution attempts after failure.",
		}),
	}
}
