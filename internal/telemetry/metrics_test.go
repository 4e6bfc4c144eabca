package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveLookup("npm", OutcomeResolved)
	m.ObserveLookup("npm", OutcomeResolved)
	m.ObserveLookup("", OutcomeUnsupported)
	m.ObserveStoreQuery("alias", nil)
	m.ObserveStoreQuery("alias", errors.New("boom"))
	m.ObserveDependency(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues("npm", OutcomeResolved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("none", OutcomeUnsupported)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeQueries.WithLabelValues("alias", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeQueries.WithLabelValues("alias", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dependencies.WithLabelValues("true")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLookup("npm", OutcomeFailed)
		m.ObserveStoreQuery("vendor", nil)
		m.ObserveDependency(false)
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveLookup("pypi", OutcomeResolved)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `registry_lookups_total{ecosystem="pypi",outcome="resolved"} 1`)
}
