package scheduler

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/blueprintdocs/internal/build"
	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/logfields"
	"git.home.luguber.info/inful/blueprintdocs/internal/publish"
)

// Publisher publishes the aggregate output.
type Publisher interface {
	Publish(ctx context.Context, cfg config.PublishConfig, dir string) (*publish.Result, error)
}

// TextfileWriter persists metrics after every run.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// BuildJob is one scheduled aggregate build, optionally followed by a
// publish when every component built.
type BuildJob struct {
	Service build.Service
	Request build.Request

	Publisher     Publisher
	PublishConfig config.PublishConfig
	PublishDir    string

	Metrics  TextfileWriter
	Textfile string

	Logger *slog.Logger
}

// Execute runs the job once. Failures are logged; the schedule goes on.
func (j *BuildJob) Execute(ctx context.Context) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defer j.writeMetrics(logger)

	res, err := j.Service.Run(ctx, j.Request)
	if err != nil {
		logger.Error("Scheduled build failed", logfields.Error(err))
		return err
	}
	if err := res.Err(); err != nil {
		logger.Error("Scheduled build finished with failures", logfields.RunID(res.RunID), logfields.Error(err))
		return err
	}
	logger.Info("Scheduled build succeeded", logfields.RunID(res.RunID))

	if j.Publisher == nil {
		return nil
	}
	if _, err := j.Publisher.Publish(ctx, j.PublishConfig, j.PublishDir); err != nil {
		logger.Error("Scheduled publish failed", logfields.Error(err))
		return err
	}
	return nil
}

func (j *BuildJob) writeMetrics(logger *slog.Logger) {
	if j.Metrics == nil || j.Textfile == "" {
		return
	}
	if err := j.Metrics.WriteTextfile(j.Textfile); err != nil {
		logger.Warn("Failed to write metrics textfile", logfields.Path(j.Textfile), logfields.Error(err))
	}
}
