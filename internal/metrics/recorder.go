package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for jobs and their stages.
type Recorder interface {
	// ObserveStepDuration records one typesetting step, e.g. "pdflatex".
	ObserveStepDuration(step string, d time.Duration, result ResultLabel)
	ObserveCloneDuration(d time.Duration, result ResultLabel)
	IncUploadResult(result ResultLabel)
	// ObserveJob records a finished job; outcome is the final state name.
	ObserveJob(outcome string, d time.Duration)
	// IncPreempted counts responses sent by the deadline watchdog.
	IncPreempted()
	IncRejected(status int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration, ResultLabel) {}
func (NoopRecorder) ObserveCloneDuration(time.Duration, ResultLabel)        {}
func (NoopRecorder) IncUploadResult(ResultLabel)                            {}
func (NoopRecorder) ObserveJob(string, time.Duration)                       {}
func (NoopRecorder) IncPreempted()                                          {}
func (NoopRecorder) IncRejected(int)                                        {}

// Result maps a failure flag onto a ResultLabel.
func Result(failed bool) ResultLabel {
	if failed {
		return ResultFailed
	}
	return ResultSuccess
}
