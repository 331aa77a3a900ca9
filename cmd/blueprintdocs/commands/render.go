package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/render"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Source      string   `arg:"" optional:"" help:"Markdown source directory" default:"docs" type:"path"`
	Out         string   `short:"o" help:"Output directory" default:"_site" type:"path"`
	Blueprint   []string `help:"Blueprint file or URL (repeatable; overrides domain.blueprints)"`
	Strict      bool     `help:"Fail when declared types are not documented"`
	HTML        bool     `name:"html" help:"Write HTML instead of Markdown"`
	Fingerprint bool     `help:"Stamp pages with a content fingerprint and only rewrite changed ones"`
	Watch       bool     `short:"w" help:"Re-render on changes until interrupted"`
}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, true)
	if err != nil {
		return err
	}
	opts := renderOptions(cfg, r.Source, r.Out, r.Blueprint)
	opts.Strict = opts.Strict || r.Strict
	opts.HTML = r.HTML
	opts.Fingerprint = r.Fingerprint

	renderer := render.New(g.Logger)
	recorder, prom := newRecorder(cfg)
	renderer.Recorder = recorder

	if r.Watch {
		w := &render.Watcher{
			Renderer: renderer,
			Options:  opts,
			OnRender: func(*render.Report, error) { writeTextfile(g, prom, cfg.Metrics.Textfile) },
		}
		return w.Run(g.context())
	}

	defer writeTextfile(g, prom, cfg.Metrics.Textfile)
	report, err := renderer.Render(g.context(), opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.stdout(), "Rendered %d page(s), %d object(s) into %s\n", report.Pages, report.Objects, opts.OutputDir)
	return nil
}

// CheckCmd implements the 'check' command: a strict render into a
// scratch directory.
type CheckCmd struct {
	Source    string   `arg:"" optional:"" help:"Markdown source directory" default:"docs" type:"path"`
	Blueprint []string `help:"Blueprint file or URL (repeatable; overrides domain.blueprints)"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, true)
	if err != nil {
		return err
	}
	scratch, err := os.MkdirTemp("", "blueprintdocs-check-")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create scratch directory").Build()
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	opts := renderOptions(cfg, c.Source, scratch, c.Blueprint)
	opts.Strict = true
	report, err := render.New(g.Logger).Render(g.context(), opts)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.stdout(), "All declared types are documented (%d object(s) in %d page(s))\n", report.Objects, report.Pages)
	return nil
}

// renderOptions combines configuration and flags. Blueprints given on the
// command line are relative to the working directory; configured ones are
// relative to the source directory.
func renderOptions(cfg *config.Config, source, out string, blueprints []string) render.Options {
	opts := render.Options{
		SourceDir:  source,
		OutputDir:  out,
		Blueprints: cfg.Domain.Blueprints,
		DomainName: cfg.Domain.Name,
		Strict:     cfg.Domain.Strict,
	}
	if len(blueprints) > 0 {
		opts.Blueprints = make([]string, len(blueprints))
		for i, bp := range blueprints {
			opts.Blueprints[i] = absIfLocal(bp)
		}
	}
	return opts
}

func absIfLocal(src string) string {
	if isURL(src) {
		return src
	}
	if abs, err := filepath.Abs(src); err == nil {
		return abs
	}
	return src
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
