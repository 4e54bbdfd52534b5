package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/sphinxctl/internal/config"
	"git.home.luguber.info/inful/sphinxctl/internal/eventstore"
	"git.home.luguber.info/inful/sphinxctl/internal/gitinfo"
	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
	"git.home.luguber.info/inful/sphinxctl/internal/metrics"
	"git.home.luguber.info/inful/sphinxctl/internal/plugin"
	"git.home.luguber.info/inful/sphinxctl/internal/plugins/core"
	"git.home.luguber.info/inful/sphinxctl/internal/plugins/sphinx"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// Host properties read by the CLI. An empty value disables the feature.
const (
	PropMetricsFile    = "metrics_file"
	PropBuildHistoryDB = "build_history_db"

	DefaultMetricsFile = "$" + project.PropDirReports + "/metrics.prom"
	// DefaultBuildHistoryDB lives outside dir_target so the clean task
	// leaves the open store alone.
	DefaultBuildHistoryDB = ".sphinxctl/build-history.db"
)

// session is a loaded project with its plugins applied, ready to execute.
type session struct {
	file     *config.ProjectFile
	project  *project.Project
	tasks    *lifecycle.Registry
	plugins  []string
	executor *lifecycle.Executor
	recorder *metrics.PrometheusRecorder
	store    *eventstore.SQLiteStore
}

// openSession loads root's project file and wires the plugins and the
// metrics observer. Commands that execute or read builds call openHistory
// afterwards.
func openSession(root *CLI) (*session, error) {
	pf, err := config.Load(root.ProjectFile)
	if err != nil {
		return nil, err
	}
	overrides, err := config.ParseOverrides(root.Property)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root.ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("resolve project file: %w", err)
	}
	p, err := project.New(filepath.Dir(abs), pf.Name)
	if err != nil {
		return nil, err
	}
	config.Apply(pf, p)
	if root.Verbose {
		p.SetProperty(project.PropVerbose, true)
	}
	config.ApplyOverrides(overrides, p)
	p.SetPropertyIfUnset(PropMetricsFile, DefaultMetricsFile)
	p.SetPropertyIfUnset(PropBuildHistoryDB, DefaultBuildHistoryDB)

	s := &session{file: pf, project: p, recorder: metrics.NewPrometheusRecorder(nil)}

	registry := plugin.NewRegistry()
	if err := registry.Register(core.New()); err != nil {
		return nil, err
	}
	if err := registry.Register(sphinx.New(sphinx.WithRecorder(s.recorder))); err != nil {
		return nil, err
	}

	s.tasks = lifecycle.NewRegistry()
	if s.plugins, err = registry.Use(s.tasks, pf.PluginsOrDefault()...); err != nil {
		return nil, err
	}

	s.executor = lifecycle.NewExecutor(s.tasks, p).WithObserver(metrics.NewObserver(s.recorder))
	return s, nil
}

// openHistory attaches the build history store when build_history_db is set.
// The store's directory is created when missing.
func (s *session) openHistory() error {
	raw := s.project.GetString(PropBuildHistoryDB)
	if raw == "" {
		return nil
	}
	store, err := eventstore.NewSQLiteStore(s.project.ExpandPath(raw))
	if err != nil {
		return err
	}
	s.store = store

	commit := ""
	if head, err := gitinfo.ReadHead(s.project.BaseDir); err == nil {
		commit = head.Hash
	}
	s.executor.WithObserver(eventstore.NewObserver(store, s.project.Name, commit))
	return nil
}

// defaultTasks returns requested, or the project's default_task, or the
// documentation build.
func (s *session) defaultTasks(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	if len(s.file.DefaultTask) > 0 {
		return s.file.DefaultTask
	}
	return []string{sphinx.TaskGenerate}
}

// flushMetrics writes the metrics textfile when metrics_file is set.
func (s *session) flushMetrics() {
	raw := s.project.GetString(PropMetricsFile)
	if raw == "" {
		return
	}
	path := s.project.ExpandPath(raw)
	if err := s.recorder.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics file", logfields.Path(path), logfields.Error(err))
		return
	}
	slog.Debug("Metrics written", logfields.Path(path))
}

// Close closes the history store, if open.
func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close build history", logfields.Error(err))
		}
	}
}
