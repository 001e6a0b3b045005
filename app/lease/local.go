package lease

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/rss-sync/app/clock"
)

// Local is an in-process Locker for single-instance deployments.
type Local struct {
	clock  clock.Clock
	mu     sync.Mutex
	leases map[string]time.Time
}

func NewLocal(c clock.Clock) *Local {
	return &Local{
		clock:  c,
		leases: make(map[string]time.Time),
	}
}

func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if expiry, held := l.leases[key]; held && now.Before(expiry) {
		return false, nil
	}

	l.leases[key] = now.Add(ttl)
	return true, nil
}

func (l *Local) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.leases, key)
	return nil
}
