package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/rss-sync/app/model"
)

type SyncFeedTask struct {
	Task
	State    model.FeedSyncState
	executor SyncExecutor
	result   Result
}

func NewSyncFeedTask(state model.FeedSyncState, executor SyncExecutor) *SyncFeedTask {
	return &SyncFeedTask{
		Task:     NewTask(TaskTypeSyncFeed, state.URL),
		State:    state,
		executor: executor,
	}
}

func (t *SyncFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	res, err := t.executor.Sync(ctx, t.State)
	t.result = res
	if err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"feed", t.FeedURL,
		"duration", t.GetDuration(),
		"state", string(res.State),
		"upserted", res.Upserted,
		"stale", res.Stale)

	return nil
}

func (t *SyncFeedTask) Result() Result {
	return t.result
}
