package shared

import "context"

// Locker provides keyed mutual exclusion. Implementations guarantee that at
// most one holder runs fn for a given key at a time, process-local or
// distributed depending on the implementation. Acquisition failures surface
// as concurrency errors so callers can retry with backoff.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
