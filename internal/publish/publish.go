// Package publish pushes the versioned documentation of the current
// repository to its static hosting branch.
package publish

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/git"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/metrics"
	"git.home.luguber.info/inful/blueprintdocs/internal/runner"
)

// Publisher prepares the pages branch and runs the publish command.
type Publisher struct {
	Runner   runner.Runner
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Result describes a finished publish.
type Result struct {
	Root string
	// Seeded is set when the pages branch did not exist on the remote and
	// was created from the seed files.
	Seeded    bool
	SeedFiles []string
}

// New returns a Publisher running commands with run.
func New(run runner.Runner, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{Runner: run, Recorder: metrics.NoopRecorder{}, Logger: logger}
}

// Publish publishes the repository containing dir. When the remote has no
// pages branch yet, an orphan branch holding the seed files is committed
// and pushed first; the worktree is left untouched.
func (p *Publisher) Publish(ctx context.Context, cfg config.PublishConfig, dir string) (*Result, error) {
	start := time.Now()
	res, err := p.publish(ctx, cfg, dir)
	p.recorder().ObserveStageDuration(metrics.StagePublish, time.Since(start))
	if err != nil {
		p.recorder().IncStageResult(metrics.StagePublish, metrics.ResultFailed)
		return res, err
	}
	p.recorder().IncStageResult(metrics.StagePublish, metrics.ResultSuccess)
	return res, nil
}

func (p *Publisher) publish(ctx context.Context, cfg config.PublishConfig, dir string) (*Result, error) {
	repo, err := git.Open(dir)
	if err != nil {
		return nil, err
	}
	res := &Result{Root: repo.Root()}
	logger := p.Logger.With(logfields.Branch(cfg.Branch), slog.String("remote", cfg.Remote))

	exists, err := repo.HasRemoteBranch(cfg.Remote, cfg.Branch)
	if err != nil {
		return res, err
	}
	if !exists {
		if err := p.seed(ctx, repo, cfg, res, logger); err != nil {
			return res, err
		}
	} else {
		logger.Debug("Pages branch exists on remote")
	}

	cmd := runner.Command{
		Name: cfg.Command,
		Args: runner.Expand(cfg.Args, map[string]string{
			"repo_dir": res.Root,
			"root_ref": cfg.RootRef,
			"branch":   cfg.Branch,
			"remote":   cfg.Remote,
		}),
	}
	logger.Info("Publishing documentation", logfields.Command(cmd.String()))
	if err := p.Runner.Run(ctx, cmd); err != nil {
		return res, err
	}
	logger.Info("Documentation published", logfields.Dir(res.Root))
	return res, nil
}

func (p *Publisher) seed(ctx context.Context, repo *git.Repository, cfg config.PublishConfig, res *Result, logger *slog.Logger) error {
	logger.Info("Creating pages branch", slog.String("pattern", cfg.SeedGlob))
	files, err := repo.SeedOrphanBranch(cfg.Branch, cfg.SeedGlob)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("No seed files matched; pages branch starts empty", slog.String("pattern", cfg.SeedGlob))
	}
	auth, err := git.AuthMethod(cfg.Auth)
	if err != nil {
		return err
	}
	if err := repo.Push(ctx, cfg.Remote, cfg.Branch, auth); err != nil {
		return err
	}
	res.Seeded = true
	res.SeedFiles = files
	logger.Info("Pages branch pushed", slog.Any("files", files))
	return nil
}

func (p *Publisher) recorder() metrics.Recorder {
	if p.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return p.Recorder
}
