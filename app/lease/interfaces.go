// Package lease provides short-lived exclusive leases so that only one
// server process runs a scheduler tick at a time.
package lease

import (
	"context"
	"time"
)

type Locker interface {
	// Acquire reports whether the caller now holds key for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release gives up key if the caller still holds it.
	Release(ctx context.Context, key string) error
}

var (
	_ Locker = (*Local)(nil)
	_ Locker = (*Redis)(nil)
)
