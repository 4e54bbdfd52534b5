package sphinx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/plugin"
	"git.home.luguber.info/inful/sphinxctl/internal/plugins/core"
	"git.home.luguber.info/inful/sphinxctl/internal/process"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

func newProject(t *testing.T) *project.Project {
	t.Helper()
	p, err := project.New(t.TempDir(), "demo")
	require.NoError(t, err)
	return p
}

// writeStub creates an executable shell script named name in dir.
func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// newExecutor wires core and this plugin onto p.
func newExecutor(t *testing.T, p *project.Project, opts ...Option) *lifecycle.Executor {
	t.Helper()
	plugins := plugin.NewRegistry()
	require.NoError(t, plugins.Register(core.New()))
	require.NoError(t, plugins.Register(New(opts...)))
	lr := lifecycle.NewRegistry()
	_, err := plugins.Use(lr, Name)
	require.NoError(t, err)
	return lifecycle.NewExecutor(lr, p)
}

// stubTools installs sphinx-build and sphinx-quickstart stubs and points the
// executable properties at them.
func stubTools(t *testing.T, p *project.Project, buildBody, quickstartBody string) {
	t.Helper()
	bin := t.TempDir()
	p.SetProperty(PropBuildExecutable, writeStub(t, bin, "sphinx-build", buildBody))
	p.SetProperty(PropQuickstartExecutable, writeStub(t, bin, "sphinx-quickstart", quickstartBody))
}

// loadSettings initializes p and decodes its settings.
func loadSettings(t *testing.T, p *project.Project) Settings {
	t.Helper()
	require.NoError(t, Initialize(p))
	s, err := Load(p)
	require.NoError(t, err)
	return s
}

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestInitialize_FillsMissingKeys(t *testing.T) {
	keys := []string{PropBuilder, PropSourceDir, PropOutputDir, PropConfigPath}
	defaults := map[string]string{
		PropBuilder:    "html",
		PropSourceDir:  "docs",
		PropOutputDir:  "_build/",
		PropConfigPath: "docs",
	}

	// Every subset of the four keys is preset with a custom value.
	for mask := 0; mask < 1<<len(keys); mask++ {
		p := newProject(t)
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				p.SetProperty(k, "custom-"+k)
			}
		}
		require.NoError(t, Initialize(p))
		require.NoError(t, Initialize(p))

		for i, k := range keys {
			want := defaults[k]
			if mask&(1<<i) != 0 {
				want = "custom-" + k
			}
			assert.Equal(t, want, p.GetString(k), "mask=%b key=%s", mask, k)
		}
	}
}

func TestInitialize_RecordsBuildDependency(t *testing.T) {
	p := newProject(t)
	require.NoError(t, Initialize(p))
	require.NoError(t, Initialize(p))
	assert.Equal(t, []string{"sphinx"}, p.BuildDependencies())
	assert.Equal(t, "sphinx-build", p.GetString(PropBuildExecutable))
	assert.Equal(t, "sphinx-quickstart", p.GetString(PropQuickstartExecutable))
}

func TestLoadSettings(t *testing.T) {
	p := newProject(t)
	p.SetProperty(project.PropVerbose, "true")
	p.SetProperty(PropWatchPatterns, "**/*.rst, conf.py")
	require.NoError(t, Initialize(p))

	s, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "html", s.Builder)
	assert.Equal(t, "_build/", s.OutputDir)
	assert.True(t, s.Verbose)
	assert.Equal(t, []string{"**/*.rst", "conf.py"}, s.Patterns())
}

func TestLoadSettings_LooseValues(t *testing.T) {
	p := newProject(t)
	p.SetProperty(project.PropVerbose, "yes")
	p.SetProperty(PropWatchPatterns, []any{"**/*.rst", "conf.py"})

	s := loadSettings(t, p)
	assert.True(t, s.Verbose)
	assert.Equal(t, p.GetBool(project.PropVerbose), s.Verbose)
	assert.Equal(t, []string{"**/*.rst", "conf.py"}, s.Patterns())
}

func TestLoadSettings_Invalid(t *testing.T) {
	p := newProject(t)
	p.SetProperty(PropBuilder, map[string]any{"nested": true})

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryValidation))
}

func TestGenerateCommand(t *testing.T) {
	p := newProject(t)
	s := loadSettings(t, p)

	cmd := GenerateCommand(p, s)
	docs := filepath.Join(p.BaseDir, "docs")
	assert.Equal(t, []string{
		"sphinx-build",
		"-b", "html",
		"-c", docs,
		docs,
		filepath.Join(p.BaseDir, "_build"),
	}, cmd.Argv())

	assert.True(t, cmd.Equal(GenerateCommand(p, s)), "equal settings must give equal commands")
}

func TestGenerateCommand_PathsStaySingleTokens(t *testing.T) {
	p := newProject(t)
	p.SetProperty(PropSourceDir, "my docs")
	p.SetProperty(PropOutputDir, "$dir_target/site & more")
	p.SetProperty(PropBuilder, "dirhtml")
	p.SetProperty(PropBuildExecutable, " /opt/sphinx/bin/sphinx-build ")

	argv := GenerateCommand(p, loadSettings(t, p)).Argv()
	require.Len(t, argv, 7)
	assert.Equal(t, "/opt/sphinx/bin/sphinx-build", argv[0])
	assert.Equal(t, "dirhtml", argv[2])
	assert.Equal(t, filepath.Join(p.BaseDir, "my docs"), argv[5])
	assert.Equal(t, filepath.Join(p.BaseDir, "target", "site & more"), argv[6])
}

func TestQuickstartCommand(t *testing.T) {
	p := newProject(t)

	cmd := QuickstartCommand(p, loadSettings(t, p), "demo", "A", "1.0")
	assert.Equal(t, []string{
		"sphinx-quickstart",
		"-q",
		"-p", "demo",
		"-a", "A",
		"-v", "1.0",
		filepath.Join(p.BaseDir, "docs"),
	}, cmd.Argv())
}

func TestResolveAuthor(t *testing.T) {
	p := newProject(t)
	git := func(string) string { return "Git Author" }

	assert.Equal(t, "unknown", ResolveAuthor(p, nil))
	assert.Equal(t, "unknown", ResolveAuthor(p, func(string) string { return " " }))
	assert.Equal(t, "Git Author", ResolveAuthor(p, git))

	p.Authors = []string{"Ada", " ", "Grace"}
	assert.Equal(t, "Ada, Grace", ResolveAuthor(p, git))
}

func TestAssertAvailable(t *testing.T) {
	p := newProject(t)
	require.NoError(t, Initialize(p))
	stubTools(t, p, "exit 0", "exit 3")

	assert.NoError(t, AssertAvailable(context.Background(), p), "a non-zero probe exit still means available")
}

func TestAssertAvailable_ChecksBothTools(t *testing.T) {
	p := newProject(t)
	require.NoError(t, Initialize(p))
	p.SetProperty(PropBuildExecutable, "sphinxctl-no-such-build")
	p.SetProperty(PropQuickstartExecutable, "sphinxctl-no-such-quickstart")

	err := AssertAvailable(context.Background(), p)
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryPrerequisite))
	assert.Contains(t, err.Error(), "missing prerequisite sphinx required by plugin python.sphinx")

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)
}

func TestAssertAvailable_OneMissing(t *testing.T) {
	p := newProject(t)
	require.NoError(t, Initialize(p))
	stubTools(t, p, "exit 0", "exit 0")
	p.SetProperty(PropQuickstartExecutable, "sphinxctl-no-such-quickstart")

	err := AssertAvailable(context.Background(), p)
	require.Error(t, err)
	be, ok := berrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "sphinxctl-no-such-quickstart", be.Context["executable"])
}

func TestGenerate_Succeeds(t *testing.T) {
	p := newProject(t)
	stubTools(t, p,
		`[ "$1" = "--version" ] && exit 0
echo "building $2"
mkdir -p "$6" && printf '<html><head><title>Demo</title></head><body></body></html>' > "$6/index.html"`,
		"exit 0")

	summary, err := newExecutor(t, p).Execute(context.Background(), TaskGenerate)
	require.NoError(t, err)
	assert.Equal(t, []string{core.TaskPrepare, TaskGenerate}, summary.Plan)

	logPath := filepath.Join(p.BaseDir, "target", "reports", "sphinx-build")
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "building html")
	assert.FileExists(t, filepath.Join(p.BaseDir, "_build", "index.html"))
}

func TestGenerate_NonZeroExitFailsWithoutVerbose(t *testing.T) {
	p := newProject(t)
	stubTools(t, p, `[ "$1" = "--version" ] && exit 0
echo "conf.py not found" >&2
exit 1`, "exit 0")
	require.False(t, p.GetBool(project.PropVerbose))

	summary, err := newExecutor(t, p).Execute(context.Background(), TaskGenerate)
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryBuild))

	logPath := filepath.Join(p.BaseDir, "target", "reports", "sphinx-build")
	assert.Contains(t, err.Error(), "Sphinx build command failed. See "+logPath+" for details")
	assert.Equal(t, lifecycle.TaskFailed, summary.Tasks[len(summary.Tasks)-1].State)

	be, ok := berrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 1, be.Context["exit_code"])
}

func TestQuickstart_PassesResolvedIdentity(t *testing.T) {
	p := newProject(t)
	p.Version = "2.3"
	argsFile := filepath.Join(t.TempDir(), "args")
	stubTools(t, p, "exit 0", `[ "$1" = "--version" ] && exit 0
printf '%s\n' "$@" > "`+argsFile+`"`)

	_, err := newExecutor(t, p, WithAuthorResolver(func(string) string { return "Ada" })).
		Execute(context.Background(), TaskQuickstart)
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"-q", "-p", "demo", "-a", "Ada", "-v", "2.3", filepath.Join(p.BaseDir, "docs")},
		strings.Split(strings.TrimSpace(string(data)), "\n"))
}

func TestPrepareFailsWhenToolsMissing(t *testing.T) {
	p := newProject(t)
	p.SetProperty(PropBuildExecutable, "sphinxctl-no-such-build")
	p.SetProperty(PropQuickstartExecutable, "sphinxctl-no-such-quickstart")

	_, err := newExecutor(t, p).Execute(context.Background(), TaskGenerate)
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryPrerequisite))
}

// fakeRunner records commands and returns a fixed result.
type fakeRunner struct {
	cmds   []process.Command
	result process.Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, cmd process.Command, logPath string) (process.Result, error) {
	f.cmds = append(f.cmds, cmd)
	res := f.result
	res.LogFile = logPath
	return res, f.err
}

func TestRunTool_VerboseControlsLogLevel(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		buf := captureLogs(t, slog.LevelInfo)
		p := newProject(t)
		p.SetProperty(project.PropVerbose, verbose)
		s := loadSettings(t, p)
		runner := &fakeRunner{}

		err := New(WithRunner(runner)).runTool(context.Background(), p, s, GenerateCommand(p, s), "Sphinx build", BuildLog)
		require.NoError(t, err)
		require.Len(t, runner.cmds, 1, "the command runs regardless of verbose")
		assert.Equal(t, verbose, strings.Contains(buf.String(), "Executing command"), "verbose=%v", verbose)
	}
}

func TestRunTool_SpawnFailure(t *testing.T) {
	p := newProject(t)
	s := loadSettings(t, p)
	runner := &fakeRunner{result: process.Result{ExitCode: -1}, err: errors.New("exec: not found")}

	err := New(WithRunner(runner)).runTool(context.Background(), p, s, GenerateCommand(p, s), "Sphinx build", BuildLog)
	require.Error(t, err)
	assert.True(t, berrors.IsCategory(err, berrors.CategoryBuild))
	assert.Contains(t, err.Error(), "exec: not found")
}
