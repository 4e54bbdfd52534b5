package lifecycle

import "fmt"

// TaskState is the per-execution state of one task.
type TaskState string

const (
	TaskNotStarted TaskState = "NOT_STARTED"
	TaskRunning    TaskState = "RUNNING"
	TaskSucceeded  TaskState = "SUCCEEDED"
	TaskFailed     TaskState = "FAILED"
)

// IsTerminal reports whether the state is final for this execution.
func (s TaskState) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case TaskNotStarted:
		return to == TaskRunning
	case TaskRunning:
		return to == TaskSucceeded || to == TaskFailed
	default:
		return false
	}
}

// transition moves task from -> to in states, rejecting unexpected prior
// states and disallowed edges.
func transition(states map[string]TaskState, task string, from, to TaskState) error {
	cur, ok := states[task]
	if !ok {
		return fmt.Errorf("unknown task in state: %q", task)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", task, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", task, from, to)
	}
	states[task] = to
	return nil
}
