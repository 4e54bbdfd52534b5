package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

// LogLevelEnv selects the log level when --verbose is not given.
const LogLevelEnv = "SPHINXCTL_LOG_LEVEL"

// Global is bound into every command's Run method.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// NewGlobal returns the bindings used by main.
func NewGlobal() *Global {
	return &Global{Logger: slog.Default(), Out: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	ProjectFile string           `short:"f" name:"project-file" help:"Project file path (build.yaml or build.toml)" default:"build.yaml"`
	Verbose     bool             `short:"v" help:"Enable verbose logging and log tool command lines at info level"`
	Property    []string         `short:"P" name:"property" sep:"none" help:"Override a project property (key=value, repeatable)" placeholder:"KEY=VALUE"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Run tasks and their dependencies (default command)"`
	Tasks   TasksCmd   `cmd:"" help:"List registered tasks"`
	Init    InitCmd    `cmd:"" help:"Write a starter project file"`
	Info    InfoCmd    `cmd:"" help:"Show resolved project properties and build dependencies"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild documentation when sources change"`
	History HistoryCmd `cmd:"" help:"List recent builds from the build history store"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel returns Debug for --verbose, otherwise the level named by
// SPHINXCTL_LOG_LEVEL, defaulting to Info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}
