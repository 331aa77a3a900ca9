package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	require.Same(t, reg, pr.Registry())

	pr.ObserveStageDuration(StageClone, 150*time.Millisecond)
	pr.IncStageResult(StageClone, ResultSuccess)
	pr.IncStageResult(StageBuild, ResultFailed)
	pr.ObserveComponentDuration("cloudify-openstack-plugin", 2*time.Second, true)
	pr.ObserveRunDuration(5 * time.Second)
	pr.IncRunOutcome(ResultFailed)
	pr.SetFailedComponents(1)

	require.InDelta(t, 1, testutil.ToFloat64(pr.stageResults.WithLabelValues(StageBuild, string(ResultFailed))), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.failedComponents), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.runOutcomes.WithLabelValues(string(ResultFailed))), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetFailedComponents(2)

	path := filepath.Join(t.TempDir(), "blueprintdocs.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "blueprintdocs_failed_components 2")
}

func TestHTTPHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncRunOutcome(ResultSuccess)

	rec := httptest.NewRecorder()
	pr.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `blueprintdocs_run_outcomes_total{result="success"} 1`)
}
