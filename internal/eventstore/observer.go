package eventstore

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
	"git.home.luguber.info/inful/sphinxctl/internal/observability"
)

// Observer records lifecycle events in a Store. Store failures are logged
// and never fail the build.
type Observer struct {
	lifecycle.NoopObserver
	store     Store
	project   string
	gitCommit string
}

// NewObserver returns an observer writing to store. gitCommit may be empty.
func NewObserver(store Store, project, gitCommit string) *Observer {
	return &Observer{store: store, project: project, gitCommit: gitCommit}
}

func (o *Observer) OnBuildStart(ctx context.Context, buildID string, plan []string) {
	o.append(ctx, func() (Event, error) {
		return NewBuildStarted(buildID, BuildStartedMeta{Project: o.project, Plan: plan, GitCommit: o.gitCommit})
	})
}

func (o *Observer) OnTaskComplete(ctx context.Context, task string, d time.Duration, state lifecycle.TaskState, err error) {
	meta := TaskCompletedMeta{Task: task, State: string(state), Duration: d}
	if err != nil {
		meta.Error = err.Error()
	}
	buildID := observability.FromContext(ctx).BuildID
	o.append(ctx, func() (Event, error) { return NewTaskCompleted(buildID, meta) })
}

func (o *Observer) OnBuildComplete(ctx context.Context, s *lifecycle.Summary) {
	if s.Err == nil {
		o.append(ctx, func() (Event, error) { return NewBuildCompleted(s.BuildID, s.Duration) })
		return
	}
	failed := ""
	for _, t := range s.Tasks {
		if t.State == lifecycle.TaskFailed {
			failed = t.Name
		}
	}
	o.append(ctx, func() (Event, error) { return NewBuildFailed(s.BuildID, failed, s.Duration, s.Err) })
}

func (o *Observer) append(ctx context.Context, build func() (Event, error)) {
	e, err := build()
	if err == nil {
		// The build context may already be cancelled; history is still written.
		err = o.store.Append(context.WithoutCancel(ctx), e)
	}
	if err != nil {
		observability.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}
