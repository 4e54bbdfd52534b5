// Package sphinx is the python.sphinx plugin. It scaffolds and builds Sphinx
// documentation by running sphinx-quickstart and sphinx-build with argv built
// from project properties.
package sphinx

import (
	"context"
	"log/slog"
	"strings"
	"time"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
	"git.home.luguber.info/inful/sphinxctl/internal/metrics"
	"git.home.luguber.info/inful/sphinxctl/internal/observability"
	"git.home.luguber.info/inful/sphinxctl/internal/plugin"
	"git.home.luguber.info/inful/sphinxctl/internal/plugins/core"
	"git.home.luguber.info/inful/sphinxctl/internal/process"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
	"git.home.luguber.info/inful/sphinxctl/internal/sitecheck"
)

const (
	Name = "python.sphinx"

	TaskQuickstart = "sphinx_quickstart"
	TaskGenerate   = "sphinx_generate_documentation"

	// Log file names under dir_reports.
	QuickstartLog = "sphinx-quickstart"
	BuildLog      = "sphinx-build"

	// logTailLines is how much of a failed tool's log is echoed.
	logTailLines = 20
)

// Plugin implements plugin.Plugin.
type Plugin struct {
	runner   process.Runner
	recorder metrics.Recorder
	author   AuthorResolver
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) Option { return func(p *Plugin) { p.runner = r } }

// WithRecorder reports tool invocations to rec.
func WithRecorder(rec metrics.Recorder) Option { return func(p *Plugin) { p.recorder = rec } }

// WithAuthorResolver replaces the git-based author fallback.
func WithAuthorResolver(fn AuthorResolver) Option { return func(p *Plugin) { p.author = fn } }

// New returns the plugin with an exec runner, no metrics and the git author
// fallback.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		runner:   process.NewExecRunner(""),
		recorder: metrics.NoopRecorder{},
		author:   GitAuthor,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (*Plugin) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         Name,
		Version:      "v1.0.0",
		Description:  "Sphinx documentation scaffolding and generation",
		Dependencies: []plugin.PluginDependency{{Name: core.Name}},
	}
}

func (pl *Plugin) Register(r *lifecycle.Registry) error {
	r.Initializer(Name, Initialize)
	r.After(core.TaskPrepare, "assert sphinx is available", AssertAvailable)

	if err := r.Task(lifecycle.Task{
		Name:        TaskQuickstart,
		Description: "Starts a new sphinx project",
		DependsOn:   []string{core.TaskPrepare},
		Run:         pl.quickstart,
	}); err != nil {
		return err
	}
	return r.Task(lifecycle.Task{
		Name:        TaskGenerate,
		Description: "Generates documentation with sphinx",
		DependsOn:   []string{core.TaskPrepare},
		Run:         pl.generate,
	})
}

func (pl *Plugin) quickstart(ctx context.Context, p *project.Project) error {
	ctx = observability.WithPlugin(ctx, Name)
	s, err := Load(p)
	if err != nil {
		return err
	}
	observability.InfoContext(ctx, "Running sphinx-quickstart")
	cmd := QuickstartCommand(p, s, p.Name, ResolveAuthor(p, pl.author), p.VersionOrDefault())
	return pl.runTool(ctx, p, s, cmd, "Sphinx quickstart", QuickstartLog)
}

func (pl *Plugin) generate(ctx context.Context, p *project.Project) error {
	ctx = observability.WithPlugin(ctx, Name)
	s, err := Load(p)
	if err != nil {
		return err
	}
	observability.InfoContext(ctx, "Running sphinx-build")
	if err := pl.runTool(ctx, p, s, GenerateCommand(p, s), "Sphinx build", BuildLog); err != nil {
		return err
	}
	if strings.EqualFold(s.Builder, DefaultBuilder) {
		inspectSite(ctx, p.ExpandPath(s.OutputDir))
	}
	return nil
}

// runTool runs cmd with output in $dir_reports/<logName>. The command line is
// logged at Info when verbose is set and at Debug otherwise. The exit code is
// always checked.
func (pl *Plugin) runTool(ctx context.Context, p *project.Project, s Settings, cmd process.Command, tool, logName string) error {
	logPath := p.ExpandPath(p.GetString(project.PropDirReports), logName)

	level := slog.LevelDebug
	if s.Verbose {
		level = slog.LevelInfo
	}
	observability.Log(ctx, level, "Executing command", logfields.Command(cmd.String()), logfields.LogFile(logPath))

	start := time.Now()
	res, err := pl.runner.Run(ctx, cmd, logPath)
	pl.recorder.ObserveToolRun(cmd.Name, res.ExitCode, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return berrors.Wrap(err, berrors.CategoryRuntime, berrors.SeverityFatal, tool+" cancelled")
		}
		if be, ok := berrors.As(err); ok && be.Category == berrors.CategoryFileSystem {
			return err
		}
		return berrors.BuildFailed(tool, logPath, err).WithContext("command", cmd.String())
	}
	if !res.Success() {
		if lines, tailErr := process.TailLog(logPath, logTailLines); tailErr == nil && len(lines) > 0 {
			observability.ErrorContext(ctx, "Tool output (tail)", logfields.LogFile(logPath),
				slog.String("output", strings.Join(lines, "\n")))
		}
		return berrors.BuildFailed(tool, logPath, nil).
			WithContext("command", cmd.String()).
			WithContext("exit_code", res.ExitCode)
	}
	observability.DebugContext(ctx, "Tool finished", logfields.Command(cmd.Name), logfields.ExitCode(res.ExitCode))
	return nil
}

// inspectSite logs a summary of a generated HTML site. Problems are reported
// as warnings and never fail the build.
func inspectSite(ctx context.Context, dir string) {
	rep, err := sitecheck.Inspect(dir)
	if err != nil {
		observability.WarnContext(ctx, "Generated site check skipped", logfields.Path(dir), logfields.Error(err))
		return
	}
	observability.InfoContext(ctx, "Documentation generated",
		logfields.Path(dir),
		slog.String("title", rep.Title),
		slog.Int("pages", rep.Pages))
	for _, bl := range rep.BrokenLinks {
		observability.WarnContext(ctx, "Broken relative link", slog.String("page", bl.Page), slog.String("url", bl.URL))
	}
}
