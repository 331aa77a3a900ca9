package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/history"
	helpers "git.home.luguber.info/inful/blueprintdocs/internal/testutil/testutils"
)

// run parses args like main does and runs the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	var out bytes.Buffer
	g := &Global{Ctx: t.Context(), Stdout: &out}
	parser, err := kong.New(&cli, kong.Bind(g), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run(&cli)
	return out.String(), err
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blueprintdocs.yaml")

	out, err := run(t, "--config", path, "init")
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+path)
	helpers.NewFileAssertions(t, filepath.Dir(path)).AssertFileContains("blueprintdocs.yaml", "cloudify-openstack-plugin")

	_, err = run(t, "--config", path, "init")
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestRenderAndCheck(t *testing.T) {
	root := t.TempDir()
	helpers.WriteFile(t, filepath.Join(root, "plugin.yaml"), "node_types:\n  my.Node:\n    properties: {}\n  my.Other: {}\n")
	helpers.WriteFile(t, filepath.Join(root, "docs", "index.md"), "```{cfy:node} my.Node\n```\n")
	cfgPath := filepath.Join(root, "missing.yaml")
	bp := filepath.Join(root, "plugin.yaml")

	out, err := run(t, "--config", cfgPath, "render", filepath.Join(root, "docs"), "-o", filepath.Join(root, "site"), "--blueprint", bp)
	require.NoError(t, err)
	require.Contains(t, out, "Rendered 1 page(s), 1 object(s)")
	helpers.NewFileAssertions(t, filepath.Join(root, "site")).AssertFileExists("cfy-index.md")

	_, err = run(t, "--config", cfgPath, "check", filepath.Join(root, "docs"), "--blueprint", bp)
	require.True(t, errors.HasCategory(err, errors.CategoryBlueprint))

	helpers.WriteFile(t, filepath.Join(root, "docs", "other.md"), "```{cfy:node} my.Other\n```\n")
	out, err = run(t, "--config", cfgPath, "check", filepath.Join(root, "docs"), "--blueprint", bp)
	require.NoError(t, err)
	require.Contains(t, out, "All declared types are documented")
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	store, err := history.Open(db)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), history.Result{
		RunID: "run-42", Component: "cloudify-openstack-plugin", Stage: "build", Success: true, Started: time.Now(),
	}))
	require.NoError(t, store.Close())

	cfgPath := filepath.Join(dir, "none.yaml")
	out, err := run(t, "--config", cfgPath, "history", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "run-42")

	out, err = run(t, "--config", cfgPath, "history", "--db", db, "run-42")
	require.NoError(t, err)
	require.Contains(t, out, "cloudify-openstack-plugin")

	_, err = run(t, "--config", cfgPath, "history")
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestHistoryFlags(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Bind(&Global{}), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"history"})
	require.NoError(t, err)
	require.Equal(t, 20, cli.History.Limit)
	require.Empty(t, cli.History.RunID)

	_, err = parser.Parse([]string{"history", "-n", "3", "run-7"})
	require.NoError(t, err)
	require.Equal(t, 3, cli.History.Limit)
	require.Equal(t, "run-7", cli.History.RunID)
}

func TestBuildReportsFailedComponents(t *testing.T) {
	bare, _, _ := helpers.SetupOrigin(t, map[string]string{"docs/index.rst": "Docs\n"})
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "blueprintdocs.yaml")
	helpers.WriteFile(t, cfgPath, fmt.Sprintf(`
components:
  cloudify-good-plugin:
    branch: master
    repo: %s
  cloudify-missing-plugin:
    branch: master
    repo: %s
builder:
  command: "true"
  args: []
retry:
  max_retries: 0
history:
  path: %s
`, bare, filepath.Join(dir, "nope.git"), filepath.Join(dir, "history.db")))

	_, err := run(t, "--config", cfgPath, "build", "-b", filepath.Join(dir, "_build"), "-o", filepath.Join(dir, "out"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))
	require.Contains(t, err.Error(), "cloudify-missing-plugin")
	require.Equal(t, 1, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	_, statErr := os.Stat(filepath.Join(dir, "_build", "good", "docs", "index.rst"))
	require.NoError(t, statErr)

	out, err := run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	require.Contains(t, out, "failed")
}
