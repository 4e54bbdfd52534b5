// Package core provides the host's base tasks: prepare creates the target
// directories every other plugin writes into, and clean removes them.
package core

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	berrors "git.home.luguber.info/inful/sphinxctl/internal/errors"
	"git.home.luguber.info/inful/sphinxctl/internal/lifecycle"
	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
	"git.home.luguber.info/inful/sphinxctl/internal/plugin"
	"git.home.luguber.info/inful/sphinxctl/internal/project"
)

const (
	Name = "core"

	TaskPrepare = "prepare"
	TaskClean   = "clean"
)

// Plugin implements plugin.Plugin.
type Plugin struct{}

// New returns the core plugin.
func New() *Plugin { return &Plugin{} }

func (*Plugin) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        Name,
		Version:     "v1.0.0",
		Description: "Target directory preparation and cleanup",
	}
}

func (*Plugin) Register(r *lifecycle.Registry) error {
	if err := r.Task(lifecycle.Task{
		Name:        TaskPrepare,
		Description: "Creates the target and reports directories",
		Run:         prepare,
	}); err != nil {
		return err
	}
	return r.Task(lifecycle.Task{
		Name:        TaskClean,
		Description: "Removes the target directory",
		Run:         clean,
	})
}

func prepare(ctx context.Context, p *project.Project) error {
	for _, key := range []string{project.PropDirTarget, project.PropDirReports} {
		dir := p.ExpandPath(p.GetString(key))
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return berrors.FileSystemError("mkdir", dir, err)
		}
		slog.DebugContext(ctx, "Directory ready", slog.String("property", key), logfields.Path(dir))
	}
	return nil
}

func clean(ctx context.Context, p *project.Project) error {
	dir := p.ExpandPath(p.GetString(project.PropDirTarget))
	if !within(p.BaseDir, dir) {
		return berrors.ValidationFailed("dir_target", "must be inside the project directory")
	}
	if err := os.RemoveAll(dir); err != nil {
		return berrors.FileSystemError("remove", dir, err)
	}
	slog.InfoContext(ctx, "Removed target directory", logfields.Path(dir))
	return nil
}

// within reports whether path is strictly below base.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
