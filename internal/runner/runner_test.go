package runner

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
)

func TestExpand(t *testing.T) {
	args := []string{"-c", "{repo_dir}", "build", "{docs_dir}", "{out_dir}", "--root-ref", "{branch}", "{unknown}"}
	got := Expand(args, map[string]string{
		"repo_dir": "/b/openstack",
		"docs_dir": "docs",
		"out_dir":  "/o/openstack",
		"branch":   "master",
	})
	require.Equal(t, []string{"-c", "/b/openstack", "build", "docs", "/o/openstack", "--root-ref", "master", "{unknown}"}, got)
	require.Equal(t, "{repo_dir}", args[1])
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestShellRunStreamsOutput(t *testing.T) {
	requireTool(t, "sh")
	var out bytes.Buffer
	s := &Shell{Stdout: &out, Stderr: &out}
	err := s.Run(t.Context(), Command{Name: "sh", Args: []string{"-c", "echo built $TARGET"}, Env: map[string]string{"TARGET": "docs"}})
	require.NoError(t, err)
	require.Equal(t, "built docs\n", out.String())
}

func TestShellRunExitCode(t *testing.T) {
	requireTool(t, "sh")
	s := &Shell{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := s.Run(t.Context(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryTool))
	require.Equal(t, 3, ExitCode(err))
}

func TestShellRunMissingCommand(t *testing.T) {
	s := &Shell{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	err := s.Run(t.Context(), Command{Name: "blueprintdocs-no-such-tool"})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.True(t, ce.IsFatal())
	require.Equal(t, -1, ExitCode(err))
}

func TestShellRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	s := &Shell{}
	err := s.Run(ctx, Command{Name: "true"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "sphinx-versioning push docs", Command{Name: "sphinx-versioning", Args: []string{"push", "docs"}}.String())
}
