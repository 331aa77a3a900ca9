// Package commands implements the blueprintdocs subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/history"
	"git.home.luguber.info/inful/blueprintdocs/internal/metrics"
)

// Global is shared by every command.
type Global struct {
	Ctx    context.Context
	Stdout io.Writer
	Logger *slog.Logger
}

func (g *Global) context() context.Context {
	if g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"blueprintdocs.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Clone every component and build its documentation"`
	GhPages  GhPagesCmd  `cmd:"" name:"gh-pages" help:"Publish the documentation of the current repository to its pages branch"`
	Render   RenderCmd   `cmd:"" help:"Expand cfy directives and roles in a Markdown tree"`
	Check    CheckCmd    `cmd:"" help:"Report blueprint types that no page documents"`
	Schedule ScheduleCmd `cmd:"" help:"Rebuild (and optionally publish) periodically"`
	History  HistoryCmd  `cmd:"" help:"Show recorded builds"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply sets up logging once flags are parsed. Commands that load a
// configuration replace the logger with the configured one.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads the configuration file. When optional is set, a missing
// file yields the defaults.
func (c *CLI) loadConfig(g *Global, optional bool) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		if !optional || !isMissingConfig(c.Config) {
			return nil, err
		}
		g.Logger.Debug("No configuration file, using defaults", "path", c.Config)
		cfg = config.Default()
	}
	g.Logger = cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func isMissingConfig(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// newRecorder returns a Prometheus recorder when a textfile is configured.
func newRecorder(cfg *config.Config) (metrics.Recorder, *metrics.PrometheusRecorder) {
	if cfg.Metrics.Textfile == "" {
		return metrics.NoopRecorder{}, nil
	}
	pr := metrics.NewPrometheusRecorder(nil)
	return pr, pr
}

func writeTextfile(g *Global, pr *metrics.PrometheusRecorder, path string) {
	if pr == nil || path == "" {
		return
	}
	if err := pr.WriteTextfile(path); err != nil {
		g.Logger.Warn("Failed to write metrics textfile", "path", path, "error", err)
	}
}

// openHistory opens the history database, or returns nil when none is
// configured.
func openHistory(cfg *config.Config, override string) (*history.SQLiteStore, error) {
	path := override
	if path == "" {
		path = cfg.History.Path
	}
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}

func requireHistory(store *history.SQLiteStore) error {
	if store == nil {
		return errors.ConfigError("no build history configured; set history.path or pass --db").Build()
	}
	return nil
}
