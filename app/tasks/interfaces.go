package tasks

import (
	"context"

	"github.com/lysyi3m/rss-sync/app/feed"
	"github.com/lysyi3m/rss-sync/app/model"
)

// FeedFetcher returns a parsed feed document or a *feed.FetchError / *feed.ParseError.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*feed.Document, error)
}

type SyncExecutor interface {
	Sync(ctx context.Context, state model.FeedSyncState) (Result, error)
}

// TaskSchedulerInterface is the background side of the server: the periodic
// due-feed tick plus a worker pool for ad-hoc syncs.
//
//	scheduler := NewScheduler(executor, syncStateRepo, subscriptionRepo, locker, clock.System{}, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.TriggerSync(ctx, state)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	Tick(ctx context.Context) error
	EnqueueTask(task TaskInterface) error
	TriggerSync(ctx context.Context, state model.FeedSyncState) error
	GetStats() Stats
}

var (
	_ FeedFetcher            = (*feed.Fetcher)(nil)
	_ SyncExecutor           = (*Executor)(nil)
	_ TaskSchedulerInterface = (*Scheduler)(nil)
)
