package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
)

const sampleConfig = `
components:
  cloudify-openstack-plugin:
    branch: master
  cloudify-aws-plugin:
    branch: "1.4"
    repo: https://git.example.com/aws.git
    docs_dir: doc
  cloudify-fabric-plugin:
    branch: ${FABRIC_BRANCH}
`

func TestParseAppliesDefaultsInFileOrder(t *testing.T) {
	t.Setenv("FABRIC_BRANCH", "develop")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, []string{"cloudify-openstack-plugin", "cloudify-aws-plugin", "cloudify-fabric-plugin"}, cfg.Components.Names())

	openstack := cfg.Components[0]
	require.Equal(t, "https://github.com/cloudify-cosmo/cloudify-openstack-plugin.git", openstack.Repo)
	require.Equal(t, "master", openstack.Branch)
	require.Equal(t, DefaultDocsDir, openstack.DocsDir)

	aws, ok := cfg.Component("cloudify-aws-plugin")
	require.True(t, ok)
	require.Equal(t, "https://git.example.com/aws.git", aws.Repo)
	require.Equal(t, "doc", aws.DocsDir)
	require.Equal(t, "1.4", aws.Branch)

	require.Equal(t, "develop", cfg.Components[2].Branch)

	require.Equal(t, DefaultToolCommand, cfg.Builder.Command)
	require.Equal(t, DefaultBuilderArgs(), cfg.Builder.Args)
	require.Equal(t, DefaultPagesBranch, cfg.Publish.Branch)
	require.Equal(t, DefaultPublishArgs(), cfg.Publish.Args)
	require.Equal(t, DefaultDomainName, cfg.Domain.Name)
	require.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
}

func TestParseCustomRepoTemplate(t *testing.T) {
	cfg, err := Parse([]byte(`
repo_template: git@git.example.com:docs/{name}.git
components:
  widgets:
    branch: main
`))
	require.NoError(t, err)
	require.Equal(t, "git@git.example.com:docs/widgets.git", cfg.Components[0].Repo)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"missing branch": "components:\n  a:\n    repo: https://x/a.git\n",
		"null component": "components:\n  a:\n",
		"bad template":   "repo_template: https://x/repo.git\ncomponents:\n  a:\n    branch: main\n",
		"bad backoff":    "retry:\n  backoff: sometimes\n",
		"negative retry": "retry:\n  max_retries: -1\n",
		"bad auth":       "components:\n  a:\n    branch: main\n    auth:\n      type: token\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryValidation), "got %v", err)
		})
	}
}

func TestParseRejectsNonMappingComponents(t *testing.T) {
	_, err := Parse([]byte("components:\n  - a\n"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"cloudify-openstack-plugin", "cloudify-aws-plugin"}, cfg.Components.Names())
	require.Equal(t, []string{"../plugin.yaml"}, cfg.Domain.Blueprints)

	err = Init(path, false)
	require.Error(t, err)
	require.NoError(t, Init(path, true))
}

func TestPluginName(t *testing.T) {
	require.Equal(t, "openstack", PluginName("cloudify-openstack-plugin"))
	require.Equal(t, "docs", PluginName("docs"))
	require.Equal(t, "cloudify-plugin", PluginName("cloudify-plugin"))
	require.Equal(t, "aws", PluginName("cloudify-aws"))
	require.Equal(t, "diamond", PluginName("diamond-plugin"))
	require.Equal(t, "-plugin", PluginName("-plugin"))
	require.Equal(t, "fabric", Component{Name: "cloudify-fabric-plugin"}.DirName())
}

func TestLoggingLevel(t *testing.T) {
	l := LoggingConfig{Level: NormalizeLogLevel("WARNING")}
	require.Equal(t, slog.LevelWarn, l.SlogLevel(false))
	require.Equal(t, slog.LevelDebug, l.SlogLevel(true))

	t.Setenv("BLUEPRINTDOCS_LOG_LEVEL", "error")
	require.Equal(t, slog.LevelError, l.SlogLevel(false))

	require.Equal(t, LogFormatJSON, NormalizeLogFormat(" JSON "))
	require.Equal(t, LogFormatText, NormalizeLogFormat("xml"))
	require.NotNil(t, l.NewLogger(os.Stderr, false))
}

func TestRetryDelays(t *testing.T) {
	r := RetryConfig{}
	r.applyDefaults()
	initial, maxDelay := r.Delays()
	require.Equal(t, "1s", initial.String())
	require.Equal(t, "30s", maxDelay.String())
	require.Equal(t, DefaultMaxRetries, r.Retries())
	zero := 0
	require.Equal(t, 0, RetryConfig{MaxRetries: &zero}.Retries())
	require.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff("Exponential"))
	require.Empty(t, NormalizeRetryBackoff("never"))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Empty(t, cfg.Components)
	require.Equal(t, DefaultPagesBranch, cfg.Publish.Branch)
	require.Equal(t, []string{DefaultBlueprint}, cfg.Domain.Blueprints)
}
