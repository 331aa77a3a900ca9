package build

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/blueprintdocs/internal/config"
	"git.home.luguber.info/inful/blueprintdocs/internal/foundation/errors"
)

// Service executes aggregate builds. The CLI and the scheduler both go
// through it.
type Service interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Request contains the inputs of one aggregate build.
type Request struct {
	Config *config.Config
	// BuildDir receives the component clones.
	BuildDir string
	// OutputDir receives one subdirectory of built documentation per component.
	OutputDir string
	// Only restricts the run to the named components; empty means all.
	Only []string
}

// Status represents the outcome of a run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ComponentResult is the outcome of one component.
type ComponentResult struct {
	Name     string
	Dir      string
	Stage    string
	Cloned   bool
	Err      error
	Duration time.Duration
}

// Failed reports whether the component failed.
func (c ComponentResult) Failed() bool { return c.Err != nil }

// Result describes a finished run.
type Result struct {
	RunID      string
	Status     Status
	BuildDir   string
	OutputDir  string
	Components []ComponentResult
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Failures returns the components that failed, in build order.
func (r *Result) Failures() []ComponentResult {
	var out []ComponentResult
	for _, c := range r.Components {
		if c.Failed() {
			out = append(out, c)
		}
	}
	return out
}

// ExitCode is 1 when any component failed and 0 otherwise.
func (r *Result) ExitCode() int {
	if len(r.Failures()) > 0 {
		return 1
	}
	return 0
}

// Err returns nil for a clean run and otherwise a build error listing the
// failed components.
func (r *Result) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Name)
	}
	return errors.BuildError(fmt.Sprintf("%d component(s) failed: %s", len(failures), strings.Join(names, ", "))).
		WithContext("run_id", r.RunID).
		Build()
}
