package eventstore

import (
	"context"
	"time"
)

// Store persists events in append order.
type Store interface {
	// Append stores e. ID is ignored.
	Append(ctx context.Context, e Event) error

	// ByBuild returns the events of one build in append order.
	ByBuild(ctx context.Context, buildID string) ([]Event, error)

	// Range returns events with start <= Timestamp <= end in append order.
	Range(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}
