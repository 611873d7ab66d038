package port

import (
	"context"
	"time"
)

// Lock is a distributed mutual-exclusion slot. A lock record may only ever be
// removed by the handle that created it; release by anyone else is a no-op.
type Lock interface {
	// TryLock attempts one non-blocking acquisition with the given TTL.
	TryLock(ctx context.Context, ttl time.Duration) (bool, error)

	// Unlock deletes the lock record only if this handle still owns it.
	Unlock(ctx context.Context) error
}

// LockFactory mints a fresh lock handle, with a fresh owner token, for the
// named resource.
type LockFactory func(name string) Lock
