package delta

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/model"
)

type Puller struct {
	subscriptions database.SubscriptionRepository
	content       database.ContentRepository
	reads         database.ReadRepository
	stamper       *clock.Stamper
}

func NewPuller(subscriptions database.SubscriptionRepository, content database.ContentRepository,
	reads database.ReadRepository, stamper *clock.Stamper) *Puller {
	return &Puller{
		subscriptions: subscriptions,
		content:       content,
		reads:         reads,
		stamper:       stamper,
	}
}

// Pull returns everything relevant to userID that changed after lastPulledAt.
// The returned timestamp is the stamper watermark taken before any read. It
// stays below every write still in flight, so a row committed during or after
// the pull is delivered by the next one rather than skipped.
//
// Feeds the user subscribed to (or re-subscribed to) after lastPulledAt are
// sent in full, so a late subscriber receives the existing back catalogue.
func (p *Puller) Pull(ctx context.Context, userID string, lastPulledAt int64) (PullResponse, error) {
	timestamp := p.stamper.Watermark()
	changes := model.NewChangesObject()

	subs, err := p.subscriptions.ListByUserSince(ctx, userID, lastPulledAt)
	if err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull subscriptions: %w", err)
	}
	changes.UserSubscriptions = model.Split(subs, lastPulledAt)

	active, err := p.subscriptions.ListActiveByUser(ctx, userID)
	if err != nil {
		return PullResponse{}, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	var incremental, backfill []string
	for _, sub := range active {
		if sub.UpdatedAt > lastPulledAt {
			backfill = append(backfill, sub.FeedID)
		} else {
			incremental = append(incremental, sub.FeedID)
		}
	}

	for _, scope := range []struct {
		feedIDs []string
		since   int64
	}{
		{incremental, lastPulledAt},
		{backfill, 0},
	} {
		if len(scope.feedIDs) == 0 {
			continue
		}

		feeds, err := p.content.ListFeedsUpdatedSince(ctx, scope.feedIDs, scope.since)
		if err != nil {
			return PullResponse{}, fmt.Errorf("failed to pull feeds: %w", err)
		}
		changes.Feeds = changes.Feeds.Merge(model.Split(feeds, scope.since))

		for _, feedID := range scope.feedIDs {
			items, err := p.content.ListItemsUpdatedSince(ctx, feedID, scope.since)
			if err != nil {
				return PullResponse{}, fmt.Errorf("failed to pull items of feed %s: %w", feedID, err)
			}
			changes.FeedItems = changes.FeedItems.Merge(model.Split(items, scope.since))
		}
	}

	reads, err := p.reads.ListByUserSince(ctx, userID, lastPulledAt)
	if err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull read markers: %w", err)
	}
	changes.FeedItemReads = model.Split(reads, lastPulledAt)

	counts := changes.Count()
	attrs := []any{
		"user", userID,
		"last_pulled_at", lastPulledAt,
		"timestamp", timestamp,
		"backfilled_feeds", len(backfill),
	}
	for _, kind := range model.EntityKinds {
		attrs = append(attrs, string(kind), counts[kind])
	}
	slog.Debug("Pull completed", attrs...)

	return PullResponse{Changes: changes, Timestamp: timestamp}, nil
}
