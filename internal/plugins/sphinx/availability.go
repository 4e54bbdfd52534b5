package sphinx

import (
	"context"
	"errors"
	"log/slog"

	"git.home.luguber.info/inful/sphinxctl/internal/process"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

// Caller names the plugin in missing-prerequisite errors.
const Caller = "plugin " + Name

// AssertAvailable probes both sphinx executables with --version. Both probes
// always run; the returned error joins every failure.
func AssertAvailable(ctx context.Context, p *project.Project) error {
	s, err := Load(p)
	if err != nil {
		return err
	}
	var errs []error
	for _, exe := range []string{s.buildExecutable(), s.quickstartExecutable()} {
		slog.DebugContext(ctx, "Checking if executable is available", slog.String("executable", exe))
		if err := process.AssertCanExecute(ctx, []string{exe, "--version"}, BuildDependency, Caller); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
