package commands

import (
	"git.home.luguber.info/inful/blueprintdocs/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to list" default:"20"`
	RunID string `arg:"" name:"run" optional:"" help:"Show the component results of this run"`
	DB    string `name:"db" help:"History database (overrides history.path)" type:"path"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, true)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg, h.DB)
	if err != nil {
		return err
	}
	if err := requireHistory(store); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.RunID != "" {
		results, err := store.Results(g.context(), h.RunID)
		if err != nil {
			return err
		}
		history.WriteResults(g.stdout(), results)
		return nil
	}
	runs, err := store.Runs(g.context(), h.Limit)
	if err != nil {
		return err
	}
	history.WriteRuns(g.stdout(), runs)
	return nil
}
