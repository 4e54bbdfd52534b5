package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyTask       = "task"
	KeyTaskState  = "task_state"
	KeyPlugin     = "plugin"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyLogFile    = "log_file"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func TaskState(s string) slog.Attr    { return slog.String(KeyTaskState, s) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func LogFile(p string) slog.Attr      { return slog.String(KeyLogFile, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
