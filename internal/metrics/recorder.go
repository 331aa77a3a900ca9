package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Stage names used as labels.
const (
	StageClone   = "clone"
	StageBuild   = "build"
	StagePublish = "publish"
	StageRender  = "render"
)

// Recorder receives build observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveComponentDuration(component string, d time.Duration, success bool)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(result ResultLabel)
	SetFailedComponents(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                   {}
func (NoopRecorder) ObserveComponentDuration(string, time.Duration, bool) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                     {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                            {}
func (NoopRecorder) SetFailedComponents(int)                              {}
