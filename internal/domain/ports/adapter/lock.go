package adapter

import (
	"context"
	"time"
)

// Locker serializes short critical sections across processes. Checkout holds
// one around its read-then-write dedup window so two requests for the same
// phone and video cannot both create a pending record.
type Locker interface {
	// TryLock returns a release token, or an error when the lock is held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
