// Package metrics provides Prometheus metrics for validation runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/agentflare-ai/go-xmlvalidator/xsd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "xmlvalidate"

// Metrics holds the Prometheus metrics of one process.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Diagnostics prometheus.Counter
	NodesRead   prometheus.Counter

	// Schema cache metrics
	SchemaCacheHits   prometheus.Counter
	SchemaCacheMisses prometheus.Counter
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of documents validated",
		}, []string{"result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a validation run in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		Diagnostics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Total number of error diagnostics reported",
		}),
		NodesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_read_total",
			Help:      "Total number of document nodes read",
		}),

		SchemaCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_cache_hits_total",
			Help:      "Total number of compiled schemas served from the cache",
		}),
		SchemaCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_cache_misses_total",
			Help:      "Total number of schema compilations",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished validation run.
func (m *Metrics) ObserveRun(valid bool, errors, nodes int, elapsed time.Duration) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	m.Diagnostics.Add(float64(errors))
	m.NodesRead.Add(float64(nodes))
}

// InstrumentCache counts the hits and misses of c.
func (m *Metrics) InstrumentCache(c *xsd.SchemaCache) {
	c.OnHit = func(string) { m.SchemaCacheHits.Inc() }
	c.OnMiss = func(string) { m.SchemaCacheMisses.Inc() }
}

// WriteFile writes the metrics in the text exposition format, for the node
// exporter's textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
