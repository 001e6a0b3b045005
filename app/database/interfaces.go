package database

import (
	"context"

	"github.com/lysyi3m/rss-sync/app/model"
)

type SyncStateRepository interface {
	// ListDue returns non-deleted rows whose last completed sync is older than completedBefore.
	ListDue(ctx context.Context, completedBefore int64) ([]model.FeedSyncState, error)
	GetByURLs(ctx context.Context, urls []string) (map[string]model.FeedSyncState, error)
	// InsertIfAbsent reports whether the row was written; an existing row for the URL is left untouched.
	InsertIfAbsent(ctx context.Context, state model.FeedSyncState) (bool, error)
	MarkSyncing(ctx context.Context, url string, startedAt int64) error
	MarkCompleted(ctx context.Context, url string, state model.SyncState, completedAt int64) error
	GetCountByState(ctx context.Context) (map[model.SyncState]int, error)
}

type SubscriptionRepository interface {
	// ListByFeed returns the non-deleted subscriptions to a feed.
	ListByFeed(ctx context.Context, feedID string) ([]model.UserSubscription, error)
	ListByUserSince(ctx context.Context, userID string, since int64) ([]model.UserSubscription, error)
	ListActiveByUser(ctx context.Context, userID string) ([]model.UserSubscription, error)
	Upsert(ctx context.Context, sub model.UserSubscription) error
}

type ContentRepository interface {
	UpsertFeed(ctx context.Context, feed model.Feed) error
	ListFeedsUpdatedSince(ctx context.Context, feedIDs []string, since int64) ([]model.Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	// LatestItemUpdatedAt returns the updatedAt of the most recently updated item, or 0.
	LatestItemUpdatedAt(ctx context.Context, feedID string) (int64, error)
	UpsertItem(ctx context.Context, item model.FeedItem) error
	ListItemsUpdatedSince(ctx context.Context, feedID string, since int64) ([]model.FeedItem, error)
	GetItemCount(ctx context.Context) (int, error)
}

type ReadRepository interface {
	ListByUserSince(ctx context.Context, userID string, since int64) ([]model.UserFeedItemRead, error)
	Upsert(ctx context.Context, read model.UserFeedItemRead) error
}

var (
	_ SyncStateRepository    = (*SyncStateRepo)(nil)
	_ SubscriptionRepository = (*SubscriptionRepo)(nil)
	_ ContentRepository      = (*ContentRepo)(nil)
	_ ReadRepository         = (*ReadRepo)(nil)
)
