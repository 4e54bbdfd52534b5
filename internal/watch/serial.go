package watch

import (
	"context"
	"sync"
)

// Serialize wraps fn so concurrent callers (file events and the scheduler)
// run one at a time.
func Serialize(fn RebuildFunc) RebuildFunc {
	var mu sync.Mutex
	return func(ctx context.Context, reason string) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		fn(ctx, reason)
	}
}
