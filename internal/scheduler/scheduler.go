// Package scheduler runs aggregate builds periodically.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
)

// Scheduler wraps a gocron scheduler. Jobs never overlap themselves: a run
// still in progress when the next one is due delays it.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New creates a scheduler.
func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create scheduler").Build()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// ScheduleEvery runs task every interval, the first time immediately when
// immediate is set. It returns the job ID.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, immediate bool, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.ValidationError("schedule interval must be positive").
			WithContext("interval", interval.String()).Build()
	}
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	job, err := s.scheduler.NewJob(gocron.DurationJob(interval), gocron.NewTask(task), opts...)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "create periodic job").
			WithContext("job", name).Build()
	}
	s.logger.Info("Scheduled job", slog.String("job", name), slog.String("every", interval.String()))
	return job.ID().String(), nil
}

// ScheduleCron runs task on a five-field cron expression.
func (s *Scheduler) ScheduleCron(name, expr string, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "create cron job").
			WithContext("job", name).WithContext("cron", expr).Build()
	}
	s.logger.Info("Scheduled job", slog.String("job", name), slog.String("cron", expr))
	return job.ID().String(), nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
	<-ctx.Done()
	return s.Stop()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	if err := s.scheduler.Shutdown(); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "stop scheduler").Build()
	}
	return nil
}
