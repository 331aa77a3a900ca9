package commands

import (
	"fmt"

	"git.home.luguber.info/inful/blueprintdocs/internal/build"
	"git.home.luguber.info/inful/blueprintdocs/internal/git"
	"git.home.luguber.info/inful/blueprintdocs/internal/retry"
	"git.home.luguber.info/inful/blueprintdocs/internal/runner"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Build     string   `short:"b" help:"Directory the components are cloned into" default:"_build" type:"path"`
	Out       string   `short:"o" help:"Directory the documentation is built into" default:"out" type:"path"`
	Component []string `help:"Only build the named components (repeatable)"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, false)
	if err != nil {
		return err
	}
	recorder, prom := newRecorder(cfg)
	defer writeTextfile(g, prom, cfg.Metrics.Textfile)

	store, err := openHistory(cfg, "")
	if err != nil {
		return err
	}
	svc := build.NewService(git.NewClient(retry.FromConfig(cfg.Retry), g.Logger), runner.NewShell(g.Logger)).
		WithRecorder(recorder).
		WithLogger(g.Logger)
	if store != nil {
		defer func() { _ = store.Close() }()
		svc.WithHistory(store)
	}

	res, err := svc.Run(g.context(), build.Request{
		Config:    cfg,
		BuildDir:  b.Build,
		OutputDir: b.Out,
		Only:      b.Component,
	})
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.stdout(), "Built %d component(s) into %s\n", len(res.Components), res.OutputDir)
	return nil
}
