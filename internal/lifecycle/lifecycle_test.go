package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

type recorder struct {
	NoopObserver
	events []string
}

func (r *recorder) OnTaskStart(_ context.Context, task string) {
	r.events = append(r.events, "start:"+task)
}

func (r *recorder) OnTaskComplete(_ context.Context, task string, _ time.Duration, state TaskState, _ error) {
	r.events = append(r.events, string(state)+":"+task)
}

func newProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New(t.TempDir(), "demo")
	require.NoError(t, err)
	return p
}

func appendTask(log *[]string, name string, deps ...string) Task {
	return Task{
		Name:      name,
		DependsOn: deps,
		Run: func(context.Context, *project.Project) error {
			*log = append(*log, name)
			return nil
		},
	}
}

func TestPlan_DependencyOrder(t *testing.T) {
	var log []string
	r := NewRegistry()
	require.NoError(t, r.Task(appendTask(&log, "prepare")))
	require.NoError(t, r.Task(appendTask(&log, "compile", "prepare")))
	require.NoError(t, r.Task(appendTask(&log, "docs", "prepare", "compile")))

	plan, err := r.Plan("docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"prepare", "compile", "docs"}, plan)

	plan, err = r.Plan("compile", "docs", "prepare")
	require.NoError(t, err)
	assert.Equal(t, []string{"prepare", "compile", "docs"}, plan)
}

func TestPlan_Errors(t *testing.T) {
	var log []string
	r := NewRegistry()
	require.NoError(t, r.Task(appendTask(&log, "a", "b")))
	require.NoError(t, r.Task(appendTask(&log, "b", "a")))

	_, err := r.Plan("a")
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryTask))

	_, err = r.Plan("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown task "missing"`)
}

func TestRegistry_Task_Validation(t *testing.T) {
	var log []string
	r := NewRegistry()
	require.NoError(t, r.Task(appendTask(&log, "a")))
	assert.Error(t, r.Task(appendTask(&log, "a")))
	assert.Error(t, r.Task(Task{Name: "no-body"}))
	assert.Error(t, r.Task(Task{Run: func(context.Context, *project.Project) error { return nil }}))
}

func TestExecute_RunsInitializersOnceAndHooks(t *testing.T) {
	var log []string
	r := NewRegistry()
	r.Initializer("defaults", func(p *project.Project) error {
		log = append(log, "init")
		p.SetPropertyIfUnset("x", "1")
		return nil
	})
	require.NoError(t, r.Task(appendTask(&log, "prepare")))
	require.NoError(t, r.Task(appendTask(&log, "docs", "prepare")))
	r.After("prepare", "check-a", func(context.Context, *project.Project) error {
		log = append(log, "after-a")
		return nil
	})
	r.After("prepare", "check-b", func(context.Context, *project.Project) error {
		log = append(log, "after-b")
		return nil
	})

	obs := &recorder{}
	ex := NewExecutor(r, newProject(t)).WithObserver(obs)

	summary, err := ex.Execute(context.Background(), "docs")
	require.NoError(t, err)
	assert.True(t, summary.Success())
	assert.NotEmpty(t, summary.BuildID)
	assert.Equal(t, []string{"init", "prepare", "after-a", "after-b", "docs"}, log)
	assert.Equal(t, []string{
		"start:prepare", "SUCCEEDED:prepare",
		"start:docs", "SUCCEEDED:docs",
	}, obs.events)

	log = nil
	second, err := ex.Execute(context.Background(), "prepare")
	require.NoError(t, err)
	assert.NotEqual(t, summary.BuildID, second.BuildID)
	assert.Equal(t, []string{"prepare", "after-a", "after-b"}, log)
	assert.Equal(t, "1", ex.Project().GetString("x"))
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	var log []string
	boom := berrors.BuildFailed("tool", "/tmp/log", nil)
	r := NewRegistry()
	require.NoError(t, r.Task(appendTask(&log, "prepare")))
	require.NoError(t, r.Task(Task{
		Name:      "docs",
		DependsOn: []string{"prepare"},
		Run:       func(context.Context, *project.Project) error { return boom },
	}))
	require.NoError(t, r.Task(appendTask(&log, "publish", "docs")))

	summary, err := NewExecutor(r, newProject(t)).Execute(context.Background(), "publish")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, berrors.IsCategory(err, berrors.CategoryBuild))
	assert.False(t, summary.Success())
	require.Len(t, summary.Tasks, 2)
	assert.Equal(t, TaskSucceeded, summary.Tasks[0].State)
	assert.Equal(t, TaskFailed, summary.Tasks[1].State)
	assert.Equal(t, []string{"prepare"}, log)
}

func TestExecute_FailingHookFailsTask(t *testing.T) {
	var log []string
	r := NewRegistry()
	require.NoError(t, r.Task(appendTask(&log, "prepare")))
	r.After("prepare", "probe", func(context.Context, *project.Project) error {
		return berrors.MissingPrerequisite("sphinx", "plugin python.sphinx")
	})

	summary, err := NewExecutor(r, newProject(t)).Execute(context.Background(), "prepare")
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryPrerequisite))
	assert.Equal(t, TaskFailed, summary.Tasks[0].State)
}

func TestExecute_InitializerError(t *testing.T) {
	r := NewRegistry()
	r.Initializer("bad", func(*project.Project) error { return errors.New("nope") })

	_, err := NewExecutor(r, newProject(t)).Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initializer bad")
}

func TestExecute_Cancelled(t *testing.T) {
	var log []string
	r := NewRegistry()
	require.NoError(t, r.Task(appendTask(&log, "prepare")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(r, newProject(t)).Execute(ctx, "prepare")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, log)
}

func TestTransition(t *testing.T) {
	states := map[string]TaskState{"a": TaskNotStarted}
	require.NoError(t, transition(states, "a", TaskNotStarted, TaskRunning))
	assert.Error(t, transition(states, "a", TaskNotStarted, TaskRunning))
	assert.Error(t, transition(states, "a", TaskRunning, TaskNotStarted))
	require.NoError(t, transition(states, "a", TaskRunning, TaskFailed))
	assert.True(t, states["a"].IsTerminal())
	assert.Error(t, transition(states, "b", TaskNotStarted, TaskRunning))
}
