// Package lifecycle is the host's task pipeline. Plugins register init
// callbacks, tasks and after-task hooks explicitly; the Executor runs them in
// a deterministic order.
package lifecycle

import (
	"context"
	"fmt"
	"sort"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// InitFunc runs once per Executor, before any task.
type InitFunc func(p *project.Project) error

// TaskFunc is the body of a task or an after-task hook.
type TaskFunc func(ctx context.Context, p *project.Project) error

// Task is a named unit of work with explicit dependencies.
type Task struct {
	Name        string
	Description string
	DependsOn   []string
	Run         TaskFunc
}

type namedInit struct {
	name string
	fn   InitFunc
}

type namedHook struct {
	name string
	fn   TaskFunc
}

// Registry collects registrations. It is not safe for concurrent mutation;
// plugins register during startup only.
type Registry struct {
	initializers []namedInit
	tasks        map[string]Task
	after        map[string][]namedHook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
		after: make(map[string][]namedHook),
	}
}

// Initializer appends an init-phase callback.
func (r *Registry) Initializer(name string, fn InitFunc) {
	r.initializers = append(r.initializers, namedInit{name: name, fn: fn})
}

// Task registers t. Names must be unique.
func (r *Registry) Task(t Task) error {
	if t.Name == "" {
		return berrors.ValidationFailed("task.name", "task name is required")
	}
	if t.Run == nil {
		return berrors.ValidationFailed("task.run", fmt.Sprintf("task %q has no body", t.Name))
	}
	if _, exists := r.tasks[t.Name]; exists {
		return berrors.ValidationFailed("task.name", fmt.Sprintf("task %q already registered", t.Name))
	}
	t.DependsOn = append([]string(nil), t.DependsOn...)
	r.tasks[t.Name] = t
	return nil
}

// After appends a hook that runs when task completes successfully. Hooks run
// in registration order and a failing hook fails the task.
func (r *Registry) After(task, name string, fn TaskFunc) {
	r.after[task] = append(r.after[task], namedHook{name: name, fn: fn})
}

// Has reports whether a task is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tasks[name]
	return ok
}

// Tasks returns all registered tasks sorted by name.
func (r *Registry) Tasks() []Task {
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Plan returns the execution order for the requested tasks: every dependency
// precedes its dependents, each task appears once, and ties follow the order
// of the request and of DependsOn.
func (r *Registry) Plan(names ...string) ([]string, error) {
	const (
		visiting = iota + 1
		done
	)
	marks := make(map[string]int)
	var order []string
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		t, ok := r.tasks[name]
		if !ok {
			return berrors.UnknownTask(name)
		}
		switch marks[name] {
		case done:
			return nil
		case visiting:
			return berrors.DependencyCycle(append(append([]string(nil), stack...), name))
		}
		marks[name] = visiting
		stack = append(stack, name)
		for _, dep := range t.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		marks[name] = done
		order = append(order, name)
		return nil
	}

	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}
