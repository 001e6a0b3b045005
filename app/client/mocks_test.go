package client

import (
	"context"
	"sync"

	"github.com/lysyi3m/rss-sync/app/model"
)

type fakeTransport struct {
	mu        sync.Mutex
	calls     []string
	pulledAt  []int64
	pushed    []model.ChangesObject
	responses []model.ChangesObject
	pushErr   error
	pullErr   error
	timestamp int64
}

func (f *fakeTransport) Pull(ctx context.Context, lastPulledAt int64) (PullResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "pull")
	f.pulledAt = append(f.pulledAt, lastPulledAt)
	if f.pullErr != nil {
		return PullResult{}, f.pullErr
	}

	changes := model.NewChangesObject()
	if len(f.responses) > 0 {
		changes = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.timestamp += 1000
	return PullResult{Changes: changes, Timestamp: f.timestamp}, nil
}

func (f *fakeTransport) Push(ctx context.Context, changes model.ChangesObject) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "push")
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, changes)
	return nil
}

func (f *fakeTransport) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
