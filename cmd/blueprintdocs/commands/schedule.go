package commands

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/blueprintdocs/internal/build"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/git"
	"git.home.luguber.info/inful/blueprintdocs/internal/metrics"
	"git.home.luguber.info/inful/blueprintdocs/internal/publish"
	"git.home.luguber.info/inful/blueprintdocs/internal/retry"
	"git.home.luguber.info/inful/blueprintdocs/internal/runner"
	"git.home.luguber.info/inful/blueprintdocs/internal/scheduler"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Every   time.Duration `help:"Interval between builds" default:"1h"`
	Cron    string        `help:"Cron expression; replaces --every"`
	Now     bool          `help:"Build immediately instead of waiting for the first interval"`
	Publish bool          `help:"Publish after every successful build"`
	Dir     string        `help:"Repository to publish from" default:"." type:"path"`
	Build   string        `short:"b" help:"Directory the components are cloned into" default:"_build" type:"path"`
	Out     string        `short:"o" help:"Directory the documentation is built into" default:"out" type:"path"`
	Listen  string        `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

func (s *ScheduleCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, false)
	if err != nil {
		return err
	}
	ctx := g.context()

	prom := metrics.NewPrometheusRecorder(nil)
	shell := runner.NewShell(g.Logger)
	svc := build.NewService(git.NewClient(retry.FromConfig(cfg.Retry), g.Logger), shell).
		WithRecorder(prom).
		WithLogger(g.Logger)

	store, err := openHistory(cfg, "")
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
		svc.WithHistory(store)
	}

	job := &scheduler.BuildJob{
		Service:  svc,
		Request:  build.Request{Config: cfg, BuildDir: s.Build, OutputDir: s.Out},
		Metrics:  prom,
		Textfile: cfg.Metrics.Textfile,
		Logger:   g.Logger,
	}
	if s.Publish {
		pub := publish.New(shell, g.Logger)
		pub.Recorder = prom
		job.Publisher = pub
		job.PublishConfig = cfg.Publish
		job.PublishDir = s.Dir
	}

	sched, err := scheduler.New(g.Logger)
	if err != nil {
		return err
	}
	task := func() { _ = job.Execute(ctx) }
	if s.Cron != "" {
		_, err = sched.ScheduleCron("build", s.Cron, task)
	} else {
		_, err = sched.ScheduleEvery("build", s.Every, s.Now, task)
	}
	if err != nil {
		return err
	}

	if s.Listen != "" {
		prom.Registry().MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := serveMetrics(ctx, g, s.Listen, prom.HTTPHandler()); err != nil {
			return err
		}
	}
	return sched.Run(ctx)
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, g *Global, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return errors.WrapError(err, errors.CategoryNetwork, "start metrics server").Fatal().
			WithContext("addr", addr).Build()
	case <-time.After(100 * time.Millisecond):
	}
	g.Logger.Info("Serving metrics", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			g.Logger.Warn("Metrics server stopped", "error", err)
		}
	}()
	return nil
}
