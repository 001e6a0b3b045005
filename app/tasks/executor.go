package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/feed"
	"github.com/lysyi3m/rss-sync/app/model"
)

const DefaultMaxUpsertAge = 5 * time.Minute

// Result describes one sync run. Cause holds the fetch or parse error of a FAILED run.
type Result struct {
	URL      string
	FeedID   string
	State    model.SyncState
	Upserted int
	Stale    int
	Skipped  int
	Cause    error
}

// Executor drives a single feed through fetch, upsert and the SYNCING/SYNCED/FAILED transitions.
type Executor struct {
	syncStates   database.SyncStateRepository
	content      database.ContentRepository
	fetcher      FeedFetcher
	stamper      *clock.Stamper
	maxUpsertAge time.Duration
}

func NewExecutor(syncStates database.SyncStateRepository, content database.ContentRepository,
	fetcher FeedFetcher, stamper *clock.Stamper, maxUpsertAge time.Duration) *Executor {
	return &Executor{
		syncStates:   syncStates,
		content:      content,
		fetcher:      fetcher,
		stamper:      stamper,
		maxUpsertAge: maxUpsertAge,
	}
}

// Sync returns a nil error for fetch and parse failures; those end in FAILED
// with Result.Cause set. Store failures are returned after a best-effort
// FAILED transition.
func (e *Executor) Sync(ctx context.Context, st model.FeedSyncState) (Result, error) {
	res := Result{URL: st.URL, FeedID: st.FeedID}

	if err := e.syncStates.MarkSyncing(ctx, st.URL, e.stamper.Stamp()); err != nil {
		return e.fail(ctx, res, err)
	}

	doc, err := e.fetcher.Fetch(ctx, st.URL)
	if err != nil {
		return e.fail(ctx, res, err)
	}

	now := e.stamper.Begin()
	defer e.stamper.Done(now)

	if err := e.content.UpsertFeed(ctx, toFeed(st, doc, now)); err != nil {
		return e.fail(ctx, res, err)
	}

	latest, err := e.content.LatestItemUpdatedAt(ctx, st.FeedID)
	if err != nil {
		return e.fail(ctx, res, err)
	}
	cutoff := max(0, latest-e.maxUpsertAge.Milliseconds())

	for _, item := range doc.Items {
		if item.GUID == "" {
			res.Skipped++
			continue
		}

		pubDate := millisOrZero(item.PublishedAt)
		published := item.PublishedAt != nil && !item.PublishedAt.IsZero()
		if published && pubDate <= cutoff {
			res.Stale++
			continue
		}

		if err := e.content.UpsertItem(ctx, toFeedItem(st.FeedID, item, pubDate, now)); err != nil {
			return e.fail(ctx, res, err)
		}
		res.Upserted++
	}

	if err := e.syncStates.MarkCompleted(ctx, st.URL, model.SyncStateSynced, e.stamper.Stamp()); err != nil {
		return e.fail(ctx, res, err)
	}

	res.State = model.SyncStateSynced

	slog.Debug("Feed synced",
		"feed", st.URL,
		"upserted", res.Upserted,
		"stale", res.Stale,
		"skipped", res.Skipped,
		"cutoff", cutoff)

	return res, nil
}

func (e *Executor) fail(ctx context.Context, res Result, cause error) (Result, error) {
	res.State = model.SyncStateFailed
	res.Cause = cause

	markErr := e.syncStates.MarkCompleted(ctx, res.URL, model.SyncStateFailed, e.stamper.Stamp())

	if isFeedError(cause) {
		slog.Warn("Feed sync failed", "feed", res.URL, "error", cause)
		if markErr != nil {
			return res, fmt.Errorf("failed to record failed sync for %s: %w", res.URL, markErr)
		}
		return res, nil
	}

	if markErr != nil {
		slog.Error("Failed to record failed sync", "feed", res.URL, "error", markErr)
	}
	return res, fmt.Errorf("sync of %s failed: %w", res.URL, cause)
}

func isFeedError(err error) bool {
	return errors.Is(err, feed.ErrFetch) || errors.Is(err, feed.ErrParse)
}

func toFeed(st model.FeedSyncState, doc *feed.Document, now int64) model.Feed {
	m := doc.Metadata
	return model.Feed{
		FeedID:        st.FeedID,
		URL:           st.URL,
		Title:         m.Title,
		Description:   m.Description,
		Author:        m.Author,
		Category:      m.Category,
		Image:         m.Image,
		LastBuildDate: millisOrZero(m.LastBuildDate),
		PubDate:       millisOrZero(m.PubDate),
		SkipDays:      m.SkipDays,
		SkipHours:     m.SkipHours,
		TTL:           m.TTL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func toFeedItem(feedID string, item feed.Item, pubDate, now int64) model.FeedItem {
	return model.FeedItem{
		FeedID:      feedID,
		GUID:        item.GUID,
		PubDate:     pubDate,
		Title:       item.Title,
		Description: item.Description,
		Content:     item.Content,
		Author:      item.Author,
		Category:    item.Category,
		Link:        item.Link,
		Enclosure:   item.Enclosure,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func millisOrZero(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return clock.Millis(*t)
}
