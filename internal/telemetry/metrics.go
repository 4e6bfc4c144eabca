package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Lookup outcomes recorded by the registry resolver
const (
	OutcomeResolved    = "resolved"
	OutcomeFailed      = "failed"
	OutcomeUnsupported = "unsupported"
)

// Metrics holds the collectors for one analysis run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	lookups      *prometheus.CounterVec
	storeQueries *prometheus.CounterVec
	dependencies *prometheus.CounterVec
}

// NewMetrics registers the analysis collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_lookups_total",
			Help: "Latest-version lookups against package registries.",
		}, []string{"ecosystem", "outcome"}),
		storeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_queries_total",
			Help: "Queries issued against the vulnerability store.",
		}, []string{"query", "outcome"}),
		dependencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dependencies_scanned_total",
			Help: "Dependencies that went through vulnerability matching.",
		}, []string{"vulnerable"}),
	}
	m.registry.MustRegister(m.lookups, m.storeQueries, m.dependencies)
	return m
}

// Registry exposes the underlying registry, e.g. for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveLookup counts one registry lookup
func (m *Metrics) ObserveLookup(ecosystem, outcome string) {
	if m == nil {
		return
	}
	if ecosystem == "" {
		ecosystem = "none"
	}
	m.lookups.WithLabelValues(ecosystem, outcome).Inc()
}

// ObserveStoreQuery counts one store query; err decides the outcome label
func (m *Metrics) ObserveStoreQuery(query string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeQueries.WithLabelValues(query, outcome).Inc()
}

// ObserveDependency counts one matched dependency
func (m *Metrics) ObserveDependency(vulnerable bool) {
	if m == nil {
		return
	}
	label := "false"
	if vulnerable {
		label = "true"
	}
	m.dependencies.WithLabelValues(label).Inc()
}

// WriteTextfile writes all metrics in the Prometheus text format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
