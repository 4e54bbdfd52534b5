package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
	"git.home.luguber.info/inful/sphinxctl/internal/plugins/sphinx"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
	"git.home.luguber.info/inful/sphinxctl/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Tasks    []string      `arg:"" optional:"" help:"Tasks to run on change (default: the project's default_task)"`
	Every    time.Duration `help:"Also rebuild on this interval (0 disables)" default:"0s"`
	Debounce time.Duration `help:"Quiet period after a change before rebuilding" default:"500ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(root)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.openHistory(); err != nil {
		return err
	}
	if err := s.executor.Initialize(); err != nil {
		return err
	}
	return w.watch(ctx, g, s)
}

func (w *WatchCmd) watch(ctx context.Context, g *Global, s *session) error {
	p := s.project
	settings, err := sphinx.Load(p)
	if err != nil {
		return err
	}
	patterns := settings.Patterns()
	if len(patterns) == 0 {
		patterns = sphinx.DefaultWatchPatterns
	}

	tasks := s.defaultTasks(w.Tasks)
	rebuild := watch.Serialize(func(ctx context.Context, reason string) {
		slog.Info("Rebuilding documentation", slog.String("reason", reason))
		summary, err := s.executor.Execute(ctx, tasks...)
		printSummary(g, summary)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Rebuild failed", logfields.Error(err))
		}
		s.flushMetrics()
	})

	excludes := []string{p.ExpandPath(p.GetString(project.PropDirTarget))}
	if settings.OutputDir != "" {
		excludes = append(excludes, p.ExpandPath(settings.OutputDir))
	}
	watcher, err := watch.NewWatcher(p.BaseDir, patterns,
		watch.WithDebounce(w.Debounce),
		watch.WithExclude(excludes...))
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if w.Every > 0 {
		sched, err := watch.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := sched.SchedulePeriodicRebuild(ctx, w.Every, rebuild); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				slog.Warn("Failed to stop scheduler", logfields.Error(err))
			}
		}()
	}

	rebuild(ctx, "startup")
	if err := watcher.Run(ctx, rebuild); err != nil {
		return err
	}
	slog.Info("Watch stopped")
	return nil
}
