package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TasksCmd implements the 'tasks' command.
type TasksCmd struct{}

func (t *TasksCmd) Run(g *Global, root *CLI) error {
	s, err := openSession(root)
	if err != nil {
		return err
	}
	defer s.Close()

	defaults := make(map[string]bool)
	for _, name := range s.defaultTasks(nil) {
		defaults[name] = true
	}

	w := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TASK\tDEPENDS ON\tDESCRIPTION")
	for _, task := range s.tasks.Tasks() {
		name := task.Name
		if defaults[name] {
			name += " *"
		}
		deps := strings.Join(task.DependsOn, ", ")
		if deps == "" {
			deps = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, deps, task.Description)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write task list: %w", err)
	}
	_, _ = fmt.Fprintln(g.out(), "\n* default task")
	return nil
}
