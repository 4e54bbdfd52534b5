package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveTaskDuration("prepare", 150*time.Millisecond)
	pr.IncTaskResult("prepare", ResultSuccess)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(ResultSuccess)
	pr.ObserveToolRun("sphinx-build", 0, 2*time.Second)
	pr.ObserveToolRun("sphinx-build", 2, time.Second)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)


	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, pr.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sphinxctl_task_results_total{result="success",task="prepare"} 1`)
	assert.Contains(t, string(data), `sphinxctl_tool_exit_codes_total{exit_code="2",tool="sphinx-build"} 1`)
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncBuildOutcome(ResultFailed)

	path := filepath.Join(t.TempDir(), "reports", "metrics.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sphinxctl_build_outcomes_total{outcome="failed"} 1`)
}

func TestPrometheusRecorder_NilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveToolRun("sphinx-build", 0, time.Second)
		pr.IncBuildOutcome(ResultSuccess)
	})
}
