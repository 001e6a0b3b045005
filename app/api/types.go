package api

import (
	"context"

	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/delta"
	"github.com/lysyi3m/rss-sync/app/model"
	"github.com/lysyi3m/rss-sync/app/tasks"
)

type PullService interface {
	Pull(ctx context.Context, userID string, lastPulledAt int64) (delta.PullResponse, error)
}

type PushService interface {
	Push(ctx context.Context, userID string, changes model.ChangesObject) error
}

type StatsProvider interface {
	GetStats() tasks.Stats
}

var (
	_ PullService   = (*delta.Puller)(nil)
	_ PushService   = (*delta.Pusher)(nil)
	_ StatsProvider = (*tasks.Scheduler)(nil)
)

type Handler struct {
	puller     PullService
	pusher     PushService
	scheduler  StatsProvider
	syncStates database.SyncStateRepository
	content    database.ContentRepository
}

type PushResponse struct {
	OK bool `json:"ok"`
}
