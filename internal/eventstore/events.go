package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type names.
const (
	TypeBuildStarted   = "BuildStarted"
	TypeTaskCompleted  = "TaskCompleted"
	TypeBuildCompleted = "BuildCompleted"
	TypeBuildFailed    = "BuildFailed"
)

// Event is one recorded build or task event. ID is assigned by the store;
// Timestamp defaults to the time of Append.
type Event struct {
	ID        int64
	BuildID   string
	Type      string
	Timestamp time.Time
	Payload   json.RawMessage
	Metadata  map[string]string
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// BuildStartedMeta describes the build being started.
type BuildStartedMeta struct {
	Project   string   `json:"project"`
	Plan      []string `json:"plan"`
	GitCommit string   `json:"git_commit,omitempty"`
}

// TaskCompletedMeta describes one finished task.
type TaskCompletedMeta struct {
	Task     string        `json:"task"`
	State    string        `json:"state"`
	Duration time.Duration `json:"-"`
	Error    string        `json:"error,omitempty"`
}

func newEvent(buildID, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %s for build %s: %w", ErrMarshalPayloadFailed, eventType, buildID, err)
	}
	return Event{BuildID: buildID, Type: eventType, Timestamp: time.Now(), Payload: data}, nil
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, meta BuildStartedMeta) (Event, error) {
	return newEvent(buildID, TypeBuildStarted, meta)
}

// NewTaskCompleted creates a TaskCompleted event.
func NewTaskCompleted(buildID string, meta TaskCompletedMeta) (Event, error) {
	return newEvent(buildID, TypeTaskCompleted, struct {
		TaskCompletedMeta
		DurationMS int64 `json:"duration_ms"`
	}{meta, meta.Duration.Milliseconds()})
}

// NewBuildCompleted creates a BuildCompleted event for a successful build.
func NewBuildCompleted(buildID string, duration time.Duration) (Event, error) {
	return newEvent(buildID, TypeBuildCompleted, map[string]any{
		"status":      StatusSucceeded,
		"duration_ms": duration.Milliseconds(),
	})
}

// NewBuildFailed creates a BuildFailed event. task is empty when the build
// failed before any task ran.
func NewBuildFailed(buildID, task string, duration time.Duration, cause error) (Event, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return newEvent(buildID, TypeBuildFailed, map[string]any{
		"task":        task,
		"error":       msg,
		"duration_ms": duration.Milliseconds(),
	})
}
