// Package observability carries the current build position (build ID, task,
// plugin) on a context and adds it to log records.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
)

// LogContext is the build position attached to a context.
type LogContext struct {
	BuildID string
	Task    string
	Plugin  string
}

// Attrs returns the non-empty fields as log attributes.
func (lc LogContext) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 3)
	if lc.BuildID != "" {
		attrs = append(attrs, logfields.BuildID(lc.BuildID))
	}
	if lc.Task != "" {
		attrs = append(attrs, logfields.Task(lc.Task))
	}
	if lc.Plugin != "" {
		attrs = append(attrs, logfields.Plugin(lc.Plugin))
	}
	return attrs
}

type logContextKey struct{}

// FromContext returns the position stored on ctx, or the zero value.
func FromContext(ctx context.Context) LogContext {
	lc, _ := ctx.Value(logContextKey{}).(LogContext)
	return lc
}

func update(ctx context.Context, fn func(*LogContext)) context.Context {
	lc := FromContext(ctx)
	fn(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

// WithBuildID records the build being executed.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.BuildID = buildID })
}

// WithTask records the task being executed.
func WithTask(ctx context.Context, task string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Task = task })
}

// WithPlugin records the plugin doing the work.
func WithPlugin(ctx context.Context, plugin string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Plugin = plugin })
}

// Log writes msg at level to the default logger, prefixed with the position
// stored on ctx.
func Log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, level, msg, append(FromContext(ctx).Attrs(), attrs...)...)
}

func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelDebug, msg, attrs...)
}

func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelInfo, msg, attrs...)
}

func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelWarn, msg, attrs...)
}

func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelError, msg, attrs...)
}
