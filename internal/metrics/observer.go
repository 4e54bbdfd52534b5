package metrics

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
)

// Observer feeds lifecycle events into a Recorder.
type Observer struct {
	lifecycle.NoopObserver
	rec Recorder
}

// NewObserver returns a lifecycle observer backed by rec.
func NewObserver(rec Recorder) *Observer {
	if rec == nil {
		rec = NoopRecorder{}
	}
	return &Observer{rec: rec}
}

func (o *Observer) OnTaskComplete(_ context.Context, task string, d time.Duration, _ lifecycle.TaskState, err error) {
	o.rec.ObserveTaskDuration(task, d)
	o.rec.IncTaskResult(task, resultOf(err))
}

func (o *Observer) OnBuildComplete(_ context.Context, s *lifecycle.Summary) {
	o.rec.ObserveBuildDuration(s.Duration)
	o.rec.IncBuildOutcome(resultOf(s.Err))
}

func resultOf(err error) ResultLabel {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultFailed
	}
}
