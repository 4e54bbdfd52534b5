package errors

import "fmt"

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "project file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *BuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "project file invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("reason", reason)
}

// External tool errors

// MissingPrerequisite reports an external program that could not be started.
// caller names the component that needs it, e.g. "plugin python.sphinx".
func MissingPrerequisite(prerequisite, caller string) *BuildError {
	return New(CategoryPrerequisite, SeverityFatal,
		fmt.Sprintf("missing prerequisite %s required by %s", prerequisite, caller)).
		WithContext("prerequisite", prerequisite).
		WithContext("caller", caller)
}

// BuildFailed reports an external tool that exited non-zero. The log file
// holding its output is part of the message.
func BuildFailed(tool, logFile string, cause error) *BuildError {
	return Wrap(cause, CategoryBuild, SeverityFatal,
		fmt.Sprintf("%s command failed. See %s for details", tool, logFile)).
		WithContext("tool", tool).
		WithContext("log_file", logFile)
}

func FileSystemError(operation, path string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// Task pipeline errors

func UnknownTask(name string) *BuildError {
	return New(CategoryTask, SeverityFatal, fmt.Sprintf("unknown task %q", name)).
		WithContext("task", name)
}

func UnknownPlugin(name string) *BuildError {
	return New(CategoryTask, SeverityFatal, fmt.Sprintf("unknown plugin %q", name)).
		WithContext("plugin", name)
}

func DependencyCycle(path []string) *BuildError {
	return New(CategoryTask, SeverityFatal, "task dependency cycle").
		WithContext("cycle", path)
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
