package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/blueprintdocs/internal/publish"
	"git.home.luguber.info/inful/blueprintdocs/internal/runner"
)

// GhPagesCmd implements the 'gh-pages' command.
type GhPagesCmd struct {
	Dir    string `help:"Directory inside the repository to publish" default:"." type:"path"`
	Branch string `help:"Pages branch (overrides publish.branch)"`
}

func (p *GhPagesCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, true)
	if err != nil {
		return err
	}
	if p.Branch != "" {
		cfg.Publish.Branch = p.Branch
	}
	recorder, prom := newRecorder(cfg)
	defer writeTextfile(g, prom, cfg.Metrics.Textfile)

	pub := publish.New(runner.NewShell(g.Logger), g.Logger)
	pub.Recorder = recorder
	res, err := pub.Publish(g.context(), cfg.Publish, p.Dir)
	if err != nil {
		return err
	}
	if res.Seeded {
		_, _ = fmt.Fprintf(g.stdout(), "Created %s with %s\n", cfg.Publish.Branch, strings.Join(res.SeedFiles, ", "))
	}
	_, _ = fmt.Fprintf(g.stdout(), "Published %s\n", res.Root)
	return nil
}
