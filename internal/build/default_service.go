package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/git"
	"git.home.luguber.info/inful/blueprintdocs/internal/history"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/metrics"
	"git.home.luguber.info/inful/blueprintdocs/internal/runner"
)

// Cloner makes a component repository available in a directory.
type Cloner interface {
	EnsureClone(ctx context.Context, comp config.Component, dir string) (cloned bool, err error)
}

// HistoryRecorder persists component results.
type HistoryRecorder interface {
	Record(ctx context.Context, r history.Result) error
}

// DefaultService is the standard implementation of Service.
type DefaultService struct {
	cloner   Cloner
	runner   runner.Runner
	recorder metrics.Recorder
	history  HistoryRecorder
	logger   *slog.Logger
	newRunID func() string
}

// NewService creates a DefaultService cloning with cloner and building
// with run.
func NewService(cloner Cloner, run runner.Runner) *DefaultService {
	return &DefaultService{
		cloner:   cloner,
		runner:   run,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		newRunID: uuid.NewString,
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultService) WithRecorder(r metrics.Recorder) *DefaultService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory records every component result in h.
func (s *DefaultService) WithHistory(h HistoryRecorder) *DefaultService {
	s.history = h
	return s
}

// WithLogger sets the logger.
func (s *DefaultService) WithLogger(l *slog.Logger) *DefaultService {
	if l != nil {
		s.logger = l
	}
	return s
}

// Run builds every requested component. Component failures do not abort
// the run; they are reported in the result. The returned error is reserved
// for problems that prevent the run itself: bad requests, unusable
// directories and cancellation.
func (s *DefaultService) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: s.newRunID(), StartTime: start}
	logger := s.logger.With(logfields.RunID(result.RunID))

	finish := func(status Status) {
		result.Status = status
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(start)
		s.recorder.ObserveRunDuration(result.Duration)
		s.recorder.SetFailedComponents(len(result.Failures()))
		switch status {
		case StatusSuccess:
			s.recorder.IncRunOutcome(metrics.ResultSuccess)
		case StatusCancelled:
			s.recorder.IncRunOutcome(metrics.ResultCanceled)
		default:
			s.recorder.IncRunOutcome(metrics.ResultFailed)
		}
	}

	if req.Config == nil {
		finish(StatusFailed)
		return result, errors.ConfigError("config required").Build()
	}
	components, err := selectComponents(req.Config.Components, req.Only)
	if err != nil {
		finish(StatusFailed)
		return result, err
	}

	if result.BuildDir, err = git.EnsureDir(req.BuildDir); err != nil {
		finish(StatusFailed)
		return result, err
	}
	if result.OutputDir, err = git.EnsureDir(req.OutputDir); err != nil {
		finish(StatusFailed)
		return result, err
	}

	logger.Info("Starting build",
		slog.Int("components", len(components)),
		slog.String("build_dir", result.BuildDir),
		slog.String("out_dir", result.OutputDir))

	for _, comp := range components {
		if err := ctx.Err(); err != nil {
			logger.Warn("Build cancelled", logfields.Error(err))
			finish(StatusCancelled)
			return result, err
		}
		cr := s.buildComponent(ctx, logger, req.Config, comp, result.BuildDir, result.OutputDir)
		result.Components = append(result.Components, cr)
		s.record(ctx, logger, result.RunID, cr, time.Now().Add(-cr.Duration))
	}

	failures := result.Failures()
	if len(failures) > 0 {
		logger.Error("Some components failed to build", slog.Int("failed", len(failures)), slog.Int("total", len(components)))
		for _, f := range failures {
			logger.Error("Component failed",
				logfields.Component(f.Name), logfields.Stage(f.Stage), logfields.Error(f.Err))
		}
		finish(StatusFailed)
		return result, nil
	}

	finish(StatusSuccess)
	logger.Info("Build completed", slog.Int("components", len(components)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

func (s *DefaultService) buildComponent(ctx context.Context, logger *slog.Logger, cfg *config.Config, comp config.Component, buildDir, outDir string) ComponentResult {
	start := time.Now()
	dir := comp.DirName()
	cr := ComponentResult{Name: comp.Name, Dir: dir, Stage: metrics.StageClone}
	logger = logger.With(logfields.Component(comp.Name))

	done := func() ComponentResult {
		cr.Duration = time.Since(start)
		s.recorder.ObserveComponentDuration(comp.Name, cr.Duration, !cr.Failed())
		return cr
	}

	repoDir := filepath.Join(buildDir, dir)
	stageStart := time.Now()
	cloned, err := s.cloner.EnsureClone(ctx, comp, repoDir)
	s.recorder.ObserveStageDuration(metrics.StageClone, time.Since(stageStart))
	if err != nil {
		logger.Error("Failed to clone component", logfields.URL(comp.Repo), logfields.Error(err))
		s.recorder.IncStageResult(metrics.StageClone, metrics.ResultFailed)
		cr.Err = fmt.Errorf("%w: %w", ErrClone, err)
		return done()
	}
	cr.Cloned = cloned
	if cloned {
		s.recorder.IncStageResult(metrics.StageClone, metrics.ResultSuccess)
	} else {
		s.recorder.IncStageResult(metrics.StageClone, metrics.ResultSkipped)
	}

	cr.Stage = metrics.StageBuild
	cmd := runner.Command{
		Name: cfg.Builder.Command,
		Args: runner.Expand(cfg.Builder.Args, placeholders(comp, repoDir, filepath.Join(outDir, dir))),
	}
	logger.Info("Building documentation", logfields.Branch(comp.Branch), logfields.Command(cmd.String()))
	stageStart = time.Now()
	err = s.runner.Run(ctx, cmd)
	s.recorder.ObserveStageDuration(metrics.StageBuild, time.Since(stageStart))
	if err != nil {
		logger.Error("Failed to build component documentation", logfields.Error(err))
		s.recorder.IncStageResult(metrics.StageBuild, metrics.ResultFailed)
		cr.Err = fmt.Errorf("%w: %w", ErrBuild, err)
		return done()
	}
	s.recorder.IncStageResult(metrics.StageBuild, metrics.ResultSuccess)
	logger.Info("Component built", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return done()
}

func (s *DefaultService) record(ctx context.Context, logger *slog.Logger, runID string, cr ComponentResult, started time.Time) {
	if s.history == nil {
		return
	}
	r := history.Result{
		RunID:     runID,
		Component: cr.Name,
		Stage:     cr.Stage,
		Success:   !cr.Failed(),
		Started:   started,
		Duration:  cr.Duration,
	}
	if cr.Err != nil {
		r.Error = cr.Err.Error()
		r.Metadata = map[string]string{"category": string(errors.GetCategory(cr.Err))}
		if code := runner.ExitCode(cr.Err); code >= 0 {
			r.Metadata[runner.ExitCodeKey] = strconv.Itoa(code)
		}
	}
	if err := s.history.Record(ctx, r); err != nil {
		logger.Warn("Failed to record build history", logfields.Component(cr.Name), logfields.Error(err))
	}
}

// placeholders are the values available to builder arguments.
func placeholders(comp config.Component, repoDir, outDir string) map[string]string {
	return map[string]string{
		"repo_dir": repoDir,
		"docs_dir": comp.DocsDir,
		"out_dir":  outDir,
		"branch":   comp.Branch,
		"name":     comp.Name,
		"dir":      comp.DirName(),
	}
}

func selectComponents(all config.Components, only []string) (config.Components, error) {
	if len(only) == 0 {
		return all, nil
	}
	for _, name := range only {
		if !slices.Contains(all.Names(), name) {
			return nil, errors.ValidationError(fmt.Sprintf("unknown component %q", name)).
				WithContext(logfields.KeyComponent, name).Build()
		}
	}
	out := make(config.Components, 0, len(only))
	for _, comp := range all {
		if slices.Contains(only, comp.Name) {
			out = append(out, comp)
		}
	}
	return out, nil
}
