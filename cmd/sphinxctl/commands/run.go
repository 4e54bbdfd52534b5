package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Tasks []string `arg:"" optional:"" help:"Tasks to run (default: the project's default_task)"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunTasks(ctx, g, root, r.Tasks)
}

// RunTasks executes tasks (or the project's default) and prints a summary.
func RunTasks(ctx context.Context, g *Global, root *CLI, tasks []string) error {
	s, err := openSession(root)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.openHistory(); err != nil {
		return err
	}

	summary, err := s.executor.Execute(ctx, s.defaultTasks(tasks)...)
	s.flushMetrics()
	printSummary(g, summary)
	return err
}

func printSummary(g *Global, summary *lifecycle.Summary) {
	if summary == nil {
		return
	}
	out := g.out()
	for _, t := range summary.Tasks {
		_, _ = fmt.Fprintf(out, "%-9s %s (%s)\n", t.State, t.Name, t.Duration.Round(time.Millisecond))
	}
	if summary.Success() {
		_, _ = fmt.Fprintf(out, "BUILD SUCCESSFUL in %s\n", summary.Duration.Round(time.Millisecond))
		return
	}
	_, _ = fmt.Fprintf(out, "BUILD FAILED in %s\n", summary.Duration.Round(time.Millisecond))
}
