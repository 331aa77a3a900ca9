// Package history persists component build results so past runs can be
// listed and compared.
package history

import (
	"context"
	"time"
)

// Result is the outcome of one component within one run.
type Result struct {
	RunID     string
	Component string
	// Stage is where the component stopped: clone or build.
	Stage    string
	Success  bool
	Error    string
	Started  time.Time
	Duration time.Duration
	Metadata map[string]string
}

// Run summarizes the results sharing one run ID.
type Run struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Components int
	Failures   int
}

// Succeeded reports whether every component of the run built.
func (r Run) Succeeded() bool { return r.Failures == 0 }

// Store records and retrieves build results.
type Store interface {
	Record(ctx context.Context, r Result) error
	Runs(ctx context.Context, limit int) ([]Run, error)
	Results(ctx context.Context, runID string) ([]Result, error)
	Close() error
}
