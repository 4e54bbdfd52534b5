package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
)

// Result is the outcome of one Run.
type Result struct {
	ExitCode int
	LogFile  string
}

// Success reports a zero exit code.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Runner executes commands with their output captured to a log file.
type Runner interface {
	Run(ctx context.Context, cmd Command, logPath string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env, when non-nil, replaces the inherited environment.
	Env []string
}

// NewExecRunner returns a runner that executes in dir.
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

// Run executes cmd, writing combined stdout and stderr to logPath (parent
// directories are created). A non-zero exit is reported through Result, not
// as an error; errors mean the process could not be started or was cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, logPath string) (Result, error) {
	res := Result{ExitCode: -1, LogFile: logPath}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return res, berrors.FileSystemError("create log directory", filepath.Dir(logPath), err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return res, berrors.FileSystemError("create log file", logPath, err)
	}
	defer func() { _ = logFile.Close() }()

	// #nosec G204 -- argv comes from project properties, not remote input
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = r.Dir
	c.Env = r.Env
	c.Stdout = logFile
	c.Stderr = logFile

	runErr := c.Run()
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s cancelled: %w", cmd.Name, ctx.Err())
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("start %s: %w", cmd.Name, runErr)
	}
	res.ExitCode = 0
	return res, nil
}

// AssertCanExecute probes argv (typically "<tool> --version") and fails with
// a missing-prerequisite error when the program cannot be found or started.
// The probe's exit code is ignored: a tool that runs at all is available.
func AssertCanExecute(ctx context.Context, argv []string, prerequisite, caller string) error {
	if len(argv) == 0 {
		return berrors.InternalError("empty probe command", nil)
	}
	missing := func(cause error) error {
		be := berrors.MissingPrerequisite(prerequisite, caller).WithContext("executable", argv[0])
		be.Cause = cause
		return be
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return missing(err)
	}

	// #nosec G204 -- path is from exec.LookPath
	c := exec.CommandContext(ctx, path, argv[1:]...)
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return nil
		}
		return missing(err)
	}
	return nil
}

// TailLog returns up to n trailing lines of the file at path.
func TailLog(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if n <= 0 {
		return nil, nil
	}
	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ring, nil
}
