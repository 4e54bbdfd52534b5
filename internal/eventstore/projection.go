// Package eventstore records build and task events in SQLite and projects
// them into a build history.
package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Build statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// TaskRecord is one task outcome within a build.
type TaskRecord struct {
	Task     string        `json:"task"`
	State    string        `json:"state"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// BuildSummary is a read model summarizing a completed or in-progress build.
type BuildSummary struct {
	BuildID      string        `json:"build_id"`
	Project      string        `json:"project,omitempty"`
	GitCommit    string        `json:"git_commit,omitempty"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Plan         []string      `json:"plan,omitempty"`
	Tasks        []TaskRecord  `json:"tasks,omitempty"`
	FailedTask   string        `json:"failed_task,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// BuildHistoryProjection maintains an in-memory view of build history,
// reconstructed from events stored in the event store.
type BuildHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	builds   map[string]*BuildSummary // buildID -> summary
	history  []*BuildSummary          // finished builds, newest first
	maxSize  int
	lastSync time.Time
}

// NewBuildHistoryProjection creates a new projection backed by the given store.
func NewBuildHistoryProjection(store Store, maxHistorySize int) *BuildHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &BuildHistoryProjection{
		store:   store,
		builds:  make(map[string]*BuildSummary),
		history: make([]*BuildSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *BuildHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.Range(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.builds = make(map[string]*BuildSummary)
	p.history = make([]*BuildSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyEventLocked(event)
	}

	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneBuildsLocked()

	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *BuildHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *BuildHistoryProjection) applyEventLocked(event Event) {
	buildID := event.BuildID
	if buildID == "" {
		return
	}

	summary, exists := p.builds[buildID]
	if !exists {
		summary = &BuildSummary{
			BuildID:   buildID,
			Status:    StatusRunning,
			StartedAt: event.Timestamp,
		}
		p.builds[buildID] = summary
	}

	switch event.Type {
	case TypeBuildStarted:
		summary.StartedAt = event.Timestamp
		summary.Status = StatusRunning
		var payload BuildStartedMeta
		if err := event.Decode(&payload); err == nil {
			summary.Project = payload.Project
			summary.Plan = payload.Plan
			summary.GitCommit = payload.GitCommit
		}

	case TypeTaskCompleted:
		var payload struct {
			TaskCompletedMeta
			DurationMS int64 `json:"duration_ms"`
		}
		if err := event.Decode(&payload); err == nil {
			summary.Tasks = append(summary.Tasks, TaskRecord{
				Task:     payload.Task,
				State:    payload.State,
				Duration: time.Duration(payload.DurationMS) * time.Millisecond,
				Error:    payload.Error,
			})
		}

	case TypeBuildCompleted, TypeBuildFailed:
		now := event.Timestamp
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		summary.Status = StatusSucceeded
		var payload struct {
			Task       string `json:"task"`
			Error      string `json:"error"`
			DurationMS int64  `json:"duration_ms"`
		}
		if err := event.Decode(&payload); err == nil && payload.DurationMS > 0 {
			summary.Duration = time.Duration(payload.DurationMS) * time.Millisecond
		}
		if event.Type == TypeBuildFailed {
			summary.Status = StatusFailed
			summary.FailedTask = payload.Task
			summary.ErrorMessage = payload.Error
		}
		p.addToHistoryLocked(summary)
	}
}

// addToHistoryLocked adds a finished build to history if not already present.
func (p *BuildHistoryProjection) addToHistoryLocked(summary *BuildSummary) {
	for _, h := range p.history {
		if h.BuildID == summary.BuildID {
			return
		}
	}

	p.history = append([]*BuildSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneBuildsLocked()
}

// pruneBuildsLocked removes finished builds not present in the bounded history.
// Caller must hold p.mu (write lock).
func (p *BuildHistoryProjection) pruneBuildsLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.BuildID] = struct{}{}
	}
	for id, summary := range p.builds {
		if summary.Status == StatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.builds, id)
		}
	}
}

// GetHistory returns up to limit finished builds, newest first. A limit of
// zero or less returns all of them.
func (p *BuildHistoryProjection) GetHistory(limit int) []BuildSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.history)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]BuildSummary, n)
	for i := range n {
		result[i] = *p.history[i]
	}
	return result
}

// GetBuild returns the summary for a specific build.
func (p *BuildHistoryProjection) GetBuild(buildID string) (*BuildSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary, exists := p.builds[buildID]
	if !exists {
		return nil, false
	}
	cp := *summary
	return &cp, true
}

// LastSyncTime returns when the projection was last synchronized.
func (p *BuildHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
