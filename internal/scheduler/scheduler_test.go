package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blueprintdocs/internal/build"
	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/blueprintdocs/internal/publish"
)

func TestScheduleCron(t *testing.T) {
	t.Run("returns job id for valid cron", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleCron("test", "0 */4 * * *", func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects invalid cron", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleCron("test", "this is not a cron", func() {})
		require.True(t, errors.HasCategory(err, errors.CategoryValidation))
	})
}

func TestScheduleEvery(t *testing.T) {
	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery("test", 0, false, func() {})
		require.Error(t, err)
	})

	t.Run("runs immediately", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)

		var runs atomic.Int32
		id, err := s.ScheduleEvery("test", time.Hour, true, func() { runs.Add(1) })
		require.NoError(t, err)
		require.NotEmpty(t, id)

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
		cancel()
		require.NoError(t, <-done)
	})
}

type stubService struct {
	res *build.Result
	err error
}

func (s stubService) Run(context.Context, build.Request) (*build.Result, error) { return s.res, s.err }

type stubPublisher struct{ calls int }

func (p *stubPublisher) Publish(context.Context, config.PublishConfig, string) (*publish.Result, error) {
	p.calls++
	return &publish.Result{}, nil
}

type stubTextfile struct{ paths []string }

func (s *stubTextfile) WriteTextfile(path string) error {
	s.paths = append(s.paths, path)
	return nil
}

func TestBuildJobPublishesOnlyCleanRuns(t *testing.T) {
	pub := &stubPublisher{}
	tf := &stubTextfile{}
	job := &BuildJob{
		Service:   stubService{res: &build.Result{RunID: "ok"}},
		Publisher: pub,
		Metrics:   tf,
		Textfile:  "/tmp/blueprintdocs.prom",
	}
	require.NoError(t, job.Execute(t.Context()))
	require.Equal(t, 1, pub.calls)

	job.Service = stubService{res: &build.Result{RunID: "bad", Components: []build.ComponentResult{
		{Name: "cloudify-aws-plugin", Err: errors.GitError("boom").Build()},
	}}}
	err := job.Execute(t.Context())
	require.True(t, errors.HasCategory(err, errors.CategoryBuild))
	require.Equal(t, 1, pub.calls)
	require.Equal(t, []string{"/tmp/blueprintdocs.prom", "/tmp/blueprintdocs.prom"}, tf.paths)
}
