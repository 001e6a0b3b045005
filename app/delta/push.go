package delta

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/model"
)

type Pusher struct {
	syncStates    database.SyncStateRepository
	subscriptions database.SubscriptionRepository
	reads         database.ReadRepository
	trigger       FeedSyncTrigger
	stamper       *clock.Stamper
}

func NewPusher(syncStates database.SyncStateRepository, subscriptions database.SubscriptionRepository,
	reads database.ReadRepository, trigger FeedSyncTrigger, stamper *clock.Stamper) *Pusher {
	return &Pusher{
		syncStates:    syncStates,
		subscriptions: subscriptions,
		reads:         reads,
		trigger:       trigger,
		stamper:       stamper,
	}
}

// Push merges a client change set for userID. Every merged row is stamped
// with the same server time. Feed and item sections are ignored. Rows owned
// by another user are dropped.
func (p *Pusher) Push(ctx context.Context, userID string, changes model.ChangesObject) error {
	subs := flatten(changes.UserSubscriptions, func(s *model.UserSubscription) { s.Deleted = true })
	subs = ownedBy(subs, userID, func(s model.UserSubscription) string { return s.UserID })

	reads := flatten(changes.FeedItemReads, func(r *model.UserFeedItemRead) { r.Deleted = true })
	reads = ownedBy(reads, userID, func(r model.UserFeedItemRead) string { return r.UserID })

	if err := validate(subs, reads); err != nil {
		return err
	}

	if n := changes.Feeds.Len() + changes.FeedItems.Len(); n > 0 {
		slog.Debug("Ignoring pushed feed content", "user", userID, "rows", n)
	}

	now := p.stamper.Begin()
	defer p.stamper.Done(now)

	states, bootstrapped, err := p.resolveFeeds(ctx, subs)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		sub.FeedID = states[sub.URL].FeedID
		sub.UserID = userID
		sub.CreatedAt = now
		sub.UpdatedAt = now

		if err := p.subscriptions.Upsert(ctx, sub); err != nil {
			return fmt.Errorf("failed to merge subscription to %s: %w", sub.URL, err)
		}
	}

	for _, read := range reads {
		read.UserID = userID
		read.CreatedAt = now
		read.UpdatedAt = now

		if err := p.reads.Upsert(ctx, read); err != nil {
			return fmt.Errorf("failed to merge read marker %s: %w", read.GUID, err)
		}
	}

	for _, st := range bootstrapped {
		if err := p.trigger.TriggerSync(ctx, st); err != nil {
			slog.Warn("Failed to trigger eager sync", "feed", st.URL, "error", err)
		}
	}

	slog.Debug("Push merged",
		"user", userID,
		"subscriptions", len(subs),
		"reads", len(reads),
		"bootstrapped", len(bootstrapped))

	return nil
}

// resolveFeeds makes sure every subscribed URL has a sync state row and
// returns the canonical rows by URL, plus the rows this call created for a
// URL with at least one live subscription.
func (p *Pusher) resolveFeeds(ctx context.Context, subs []model.UserSubscription) (map[string]model.FeedSyncState, []model.FeedSyncState, error) {
	var urls []string
	tentative := make(map[string]string)
	live := make(map[string]bool)
	for _, sub := range subs {
		if _, seen := tentative[sub.URL]; !seen {
			urls = append(urls, sub.URL)
			tentative[sub.URL] = sub.FeedID
		}
		if !sub.Deleted {
			live[sub.URL] = true
		}
	}

	if len(urls) == 0 {
		return nil, nil, nil
	}

	states, err := p.syncStates.GetByURLs(ctx, urls)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up feed sync states: %w", err)
	}

	var missing []string
	var bootstrapped []model.FeedSyncState
	for _, url := range urls {
		if _, ok := states[url]; ok {
			continue
		}
		missing = append(missing, url)

		st := model.FeedSyncState{
			URL:    url,
			FeedID: tentative[url],
			State:  model.SyncStateSynced,
		}
		if st.FeedID == "" {
			st.FeedID = uuid.NewString()
		}

		inserted, err := p.syncStates.InsertIfAbsent(ctx, st)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap feed sync state for %s: %w", url, err)
		}
		if inserted && live[url] {
			bootstrapped = append(bootstrapped, st)
		}
	}

	if len(missing) > 0 {
		// A concurrent push may have won the insert; read back the canonical rows.
		resolved, err := p.syncStates.GetByURLs(ctx, missing)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up feed sync states: %w", err)
		}
		for _, url := range missing {
			st, ok := resolved[url]
			if !ok {
				return nil, nil, fmt.Errorf("feed sync state for %s missing after bootstrap", url)
			}
			states[url] = st
		}
	}

	return states, bootstrapped, nil
}

func flatten[T model.Syncable](specs model.ChangeSpecs[T], tombstone func(*T)) []T {
	rows := make([]T, 0, specs.Len())
	rows = append(rows, specs.Created...)
	rows = append(rows, specs.Updated...)
	for _, row := range specs.Deleted {
		tombstone(&row)
		rows = append(rows, row)
	}
	return rows
}

func ownedBy[T any](rows []T, userID string, owner func(T) string) []T {
	out := rows[:0]
	for _, row := range rows {
		if owner(row) == userID {
			out = append(out, row)
		}
	}
	return out
}

func validate(subs []model.UserSubscription, reads []model.UserFeedItemRead) error {
	for _, sub := range subs {
		if sub.URL == "" {
			return fmt.Errorf("%w: subscription without url", ErrInvalidChange)
		}
		if sub.RequestedFrequency < 0 {
			return fmt.Errorf("%w: negative requestedFrequency for %s", ErrInvalidChange, sub.URL)
		}
	}
	for _, read := range reads {
		if read.GUID == "" {
			return fmt.Errorf("%w: read marker without guid", ErrInvalidChange)
		}
	}
	return nil
}
