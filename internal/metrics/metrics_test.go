package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRunAndItems(t *testing.T) {
	m := New()
	m.ObserveRun(OutcomeCreated)
	m.ObserveRun(OutcomeCreated)
	m.ObserveRun(OutcomeFailed)
	m.ObserveItems("members", 2, 1)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.runs.WithLabelValues(OutcomeCreated)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.items.WithLabelValues("members", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.items.WithLabelValues("members", "failed")))
}

func TestNilMetricsIgnoresObservations(t *testing.T) {
	var m *Metrics
	m.ObserveRun(OutcomeCreated)
	m.ObserveItems("files", 1, 1)
	m.ObservePhase("files", time.Second)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveRun(OutcomeInvalid)
	m.ObservePhase("project", 150*time.Millisecond)

	path := filepath.Join(t.TempDir(), "deskboard.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `deskboard_project_create_runs_total{outcome="invalid"} 1`)
	assert.Contains(t, string(data), "deskboard_project_create_phase_seconds_count")
}
