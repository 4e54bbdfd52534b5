package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
	"git.home.luguber.info/inful/sphinxctl/internal/observability"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// Observer receives build and task progress. Embed NoopObserver to implement
// only the callbacks you need.
type Observer interface {
	OnBuildStart(ctx context.Context, buildID string, plan []string)
	OnTaskStart(ctx context.Context, task string)
	OnTaskComplete(ctx context.Context, task string, d time.Duration, state TaskState, err error)
	OnBuildComplete(ctx context.Context, summary *Summary)
}

// NoopObserver ignores every callback.
type NoopObserver struct{}

func (NoopObserver) OnBuildStart(context.Context, string, []string)                        {}
func (NoopObserver) OnTaskStart(context.Context, string)                                   {}
func (NoopObserver) OnTaskComplete(context.Context, string, time.Duration, TaskState, error) {}
func (NoopObserver) OnBuildComplete(context.Context, *Summary)                              {}

// TaskResult records one task's outcome within an execution.
type TaskResult struct {
	Name     string
	State    TaskState
	Duration time.Duration
	Err      error
}

// Summary describes one Execute call.
type Summary struct {
	BuildID  string
	Plan     []string
	Tasks    []TaskResult
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Success reports whether every planned task succeeded.
func (s *Summary) Success() bool {
	if s.Err != nil || len(s.Tasks) != len(s.Plan) {
		return false
	}
	for _, t := range s.Tasks {
		if t.State != TaskSucceeded {
			return false
		}
	}
	return true
}

// Executor runs tasks from a Registry against one Project. Executions are
// serialised; concurrent Execute calls wait for each other.
type Executor struct {
	registry  *Registry
	project   *project.Project
	observers []Observer

	mu          sync.Mutex
	initialized bool
}

// NewExecutor creates an executor for p.
func NewExecutor(r *Registry, p *project.Project) *Executor {
	return &Executor{registry: r, project: p}
}

// WithObserver adds an observer.
func (e *Executor) WithObserver(o Observer) *Executor {
	e.observers = append(e.observers, o)
	return e
}

// Project returns the project this executor builds.
func (e *Executor) Project() *project.Project { return e.project }

// Initialize runs the init-phase callbacks once. Later calls are no-ops.
func (e *Executor) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initializeLocked()
}

func (e *Executor) initializeLocked() error {
	if e.initialized {
		return nil
	}
	for _, in := range e.registry.initializers {
		slog.Debug("Running initializer", slog.String("initializer", in.name))
		if err := in.fn(e.project); err != nil {
			return fmt.Errorf("initializer %s: %w", in.name, err)
		}
	}
	e.initialized = true
	return nil
}

// Execute initializes the project if needed, then runs names and their
// dependencies. The first failure stops the execution; there are no retries.
func (e *Executor) Execute(ctx context.Context, names ...string) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	summary := &Summary{BuildID: uuid.NewString(), Started: time.Now()}
	ctx = observability.WithBuildID(ctx, summary.BuildID)

	finish := func(err error) (*Summary, error) {
		summary.Err = err
		summary.Duration = time.Since(summary.Started)
		for _, o := range e.observers {
			o.OnBuildComplete(ctx, summary)
		}
		return summary, err
	}

	if err := e.initializeLocked(); err != nil {
		return finish(err)
	}

	plan, err := e.registry.Plan(names...)
	if err != nil {
		return finish(err)
	}
	summary.Plan = plan
	for _, o := range e.observers {
		o.OnBuildStart(ctx, summary.BuildID, plan)
	}

	states := make(map[string]TaskState, len(plan))
	for _, name := range plan {
		states[name] = TaskNotStarted
	}

	for _, name := range plan {
		if err := ctx.Err(); err != nil {
			return finish(berrors.Wrap(err, berrors.CategoryRuntime, berrors.SeverityFatal, "build cancelled"))
		}
		res, err := e.runTask(ctx, states, name)
		summary.Tasks = append(summary.Tasks, res)
		if err != nil {
			return finish(err)
		}
	}
	return finish(nil)
}

func (e *Executor) runTask(ctx context.Context, states map[string]TaskState, name string) (TaskResult, error) {
	task := e.registry.tasks[name]
	taskCtx := observability.WithTask(ctx, name)

	if err := transition(states, name, TaskNotStarted, TaskRunning); err != nil {
		return TaskResult{Name: name, State: states[name], Err: err}, berrors.InternalError("task state", err)
	}
	for _, o := range e.observers {
		o.OnTaskStart(taskCtx, name)
	}
	observability.InfoContext(taskCtx, "Executing task", slog.String("description", task.Description))

	start := time.Now()
	err := task.Run(taskCtx, e.project)
	if err == nil {
		for _, h := range e.registry.after[name] {
			observability.DebugContext(taskCtx, "Running after hook", slog.String("hook", h.name))
			if err = h.fn(taskCtx, e.project); err != nil {
				err = fmt.Errorf("%s: %w", h.name, err)
				break
			}
		}
	}
	d := time.Since(start)

	final := TaskSucceeded
	if err != nil {
		final = TaskFailed
		err = fmt.Errorf("task %s: %w", name, err)
	}
	if terr := transition(states, name, TaskRunning, final); terr != nil {
		return TaskResult{Name: name, State: states[name], Duration: d, Err: terr}, berrors.InternalError("task state", terr)
	}

	for _, o := range e.observers {
		o.OnTaskComplete(taskCtx, name, d, final, err)
	}
	if err != nil {
		observability.ErrorContext(taskCtx, "Task failed", logfields.DurationMS(float64(d.Milliseconds())), logfields.Error(err))
	} else {
		observability.DebugContext(taskCtx, "Task finished", logfields.DurationMS(float64(d.Milliseconds())))
	}
	return TaskResult{Name: name, State: final, Duration: d, Err: err}, err
}
