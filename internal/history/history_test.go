package history

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndResults(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	start := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.Record(ctx, Result{
		RunID: "run-1", Component: "cloudify-openstack-plugin", Stage: "build", Success: true,
		Started: start, Duration: 2 * time.Second,
	}))
	require.NoError(t, store.Record(ctx, Result{
		RunID: "run-1", Component: "cloudify-aws-plugin", Stage: "clone",
		Error: "repository not found", Started: start.Add(2 * time.Second), Duration: time.Second,
		Metadata: map[string]string{"category": "git"},
	}))

	results, err := store.Results(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "cloudify-openstack-plugin", results[0].Component)
	require.True(t, results[0].Success)
	require.Equal(t, 2*time.Second, results[0].Duration)
	require.False(t, results[1].Success)
	require.Equal(t, "clone", results[1].Stage)
	require.Equal(t, "git", results[1].Metadata["category"])
	require.True(t, results[1].Started.Equal(start.Add(2*time.Second)))

	none, err := store.Results(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRunsNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	base := time.UnixMilli(1_700_000_000_000)

	for i, id := range []string{"old", "new"} {
		started := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Record(ctx, Result{RunID: id, Component: "a", Stage: "build", Success: true, Started: started, Duration: time.Second}))
		require.NoError(t, store.Record(ctx, Result{RunID: id, Component: "b", Stage: "build", Success: id == "old", Started: started.Add(time.Second), Duration: 3 * time.Second}))
	}

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "new", runs[0].ID)
	require.Equal(t, 2, runs[0].Components)
	require.Equal(t, 1, runs[0].Failures)
	require.False(t, runs[0].Succeeded())
	require.True(t, runs[1].Succeeded())
	require.Equal(t, 4*time.Second, runs[1].Finished.Sub(runs[1].Started))

	limited, err := store.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), Result{RunID: "r", Component: "a", Stage: "build", Success: true, Started: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.Runs(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestWriteTables(t *testing.T) {
	var buf bytes.Buffer
	WriteRuns(&buf, nil)
	require.Contains(t, buf.String(), "No builds recorded.")

	buf.Reset()
	start := time.Now()
	WriteRuns(&buf, []Run{{ID: "run-1", Started: start, Finished: start.Add(90 * time.Second), Components: 2, Failures: 1}})
	require.Contains(t, buf.String(), "run-1")
	require.Contains(t, buf.String(), "1m30s")
	require.Contains(t, buf.String(), "failed")

	buf.Reset()
	WriteResults(&buf, []Result{
		{Component: "cloudify-aws-plugin", Stage: "clone", Error: "not found", Duration: time.Second},
		{Component: "cloudify-openstack-plugin", Stage: "build", Success: true},
	})
	out := buf.String()
	require.Contains(t, out, "cloudify-aws-plugin")
	require.Contains(t, out, "not found")
	// footers are upper-cased by the light style
	require.Contains(t, strings.ToUpper(out), "1 FAILED")
}
