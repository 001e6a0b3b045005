package database

import (
	"context"
	"reflect"
	"testing"

	"github.com/lysyi3m/rss-sync/app/model"
)

func TestContentFeedRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewContentRepository(newTestDB(t))

	feed := model.Feed{
		FeedID:      "f1",
		URL:         "https://example.com/rss",
		Title:       "Example",
		Description: "An example feed",
		Image:       &model.FeedImage{URL: "https://example.com/logo.png", Title: "Logo", Link: "https://example.com"},
		SkipDays:    []string{"Saturday", "Sunday"},
		SkipHours:   []int{0, 1, 2},
		TTL:         60,
		CreatedAt:   100,
		UpdatedAt:   100,
	}
	if err := repo.UpsertFeed(ctx, feed); err != nil {
		t.Fatalf("UpsertFeed() error = %v", err)
	}

	got := loadFeed(t, repo, "f1")
	if got == nil || !reflect.DeepEqual(*got, feed) {
		t.Errorf("stored feed = %+v, want %+v", got, feed)
	}

	if missing := loadFeed(t, repo, "nope"); missing != nil {
		t.Errorf("expected no feed for unknown id, got %+v", missing)
	}
}

func TestContentUpsertFeedKeepsCreatedAtAndDeleted(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewContentRepository(db)

	feed := model.Feed{FeedID: "f1", URL: "https://example.com/rss", Title: "Old", CreatedAt: 100, UpdatedAt: 100}
	if err := repo.UpsertFeed(ctx, feed); err != nil {
		t.Fatalf("UpsertFeed() error = %v", err)
	}
	if _, err := db.Exec(`UPDATE feeds SET deleted = 1 WHERE feed_id = 'f1'`); err != nil {
		t.Fatalf("failed to tombstone feed: %v", err)
	}

	feed.Title = "New"
	feed.CreatedAt = 200
	feed.UpdatedAt = 200
	if err := repo.UpsertFeed(ctx, feed); err != nil {
		t.Fatalf("UpsertFeed() error = %v", err)
	}

	got := loadFeed(t, repo, "f1")
	if got == nil {
		t.Fatal("feed f1 not found")
	}
	if got.Title != "New" || got.CreatedAt != 100 || got.UpdatedAt != 200 || !got.Deleted {
		t.Errorf("unexpected feed after upsert: %+v", got)
	}
}

func TestContentListFeedsUpdatedSince(t *testing.T) {
	ctx := context.Background()
	repo := NewContentRepository(newTestDB(t))

	for i, id := range []string{"f1", "f2", "f3"} {
		ts := int64((i + 1) * 100)
		f := model.Feed{FeedID: id, URL: "https://example.com/" + id, CreatedAt: ts, UpdatedAt: ts}
		if err := repo.UpsertFeed(ctx, f); err != nil {
			t.Fatalf("UpsertFeed() error = %v", err)
		}
	}

	feeds, err := repo.ListFeedsUpdatedSince(ctx, []string{"f1", "f2"}, 100)
	if err != nil {
		t.Fatalf("ListFeedsUpdatedSince() error = %v", err)
	}
	if len(feeds) != 1 || feeds[0].FeedID != "f2" {
		t.Errorf("ListFeedsUpdatedSince() = %+v, want only f2", feeds)
	}

	none, err := repo.ListFeedsUpdatedSince(ctx, nil, 0)
	if err != nil || len(none) != 0 {
		t.Errorf("ListFeedsUpdatedSince(nil) = %v, %v", none, err)
	}

	count, err := repo.GetFeedCount(ctx)
	if err != nil || count != 3 {
		t.Errorf("GetFeedCount() = %d, %v; want 3", count, err)
	}
}

func TestContentItems(t *testing.T) {
	ctx := context.Background()
	repo := NewContentRepository(newTestDB(t))

	latest, err := repo.LatestItemUpdatedAt(ctx, "f1")
	if err != nil {
		t.Fatalf("LatestItemUpdatedAt() error = %v", err)
	}
	if latest != 0 {
		t.Errorf("LatestItemUpdatedAt() on empty feed = %d, want 0", latest)
	}

	items := []model.FeedItem{
		{FeedID: "f1", GUID: "a", Title: "A", Link: "https://example.com/a", CreatedAt: 10, UpdatedAt: 10,
			Enclosure: &model.Enclosure{URL: "https://example.com/a.mp3", Type: "audio/mpeg", Length: 1234}},
		{FeedID: "f1", GUID: "b", Title: "B", CreatedAt: 20, UpdatedAt: 20},
		{FeedID: "f2", GUID: "c", Title: "C", CreatedAt: 30, UpdatedAt: 30},
	}
	for _, it := range items {
		if err := repo.UpsertItem(ctx, it); err != nil {
			t.Fatalf("UpsertItem() error = %v", err)
		}
	}

	updated := items[0]
	updated.Title = "A2"
	updated.CreatedAt = 40
	updated.UpdatedAt = 40
	if err := repo.UpsertItem(ctx, updated); err != nil {
		t.Fatalf("UpsertItem() error = %v", err)
	}

	latest, err = repo.LatestItemUpdatedAt(ctx, "f1")
	if err != nil {
		t.Fatalf("LatestItemUpdatedAt() error = %v", err)
	}
	if latest != 40 {
		t.Errorf("LatestItemUpdatedAt() = %d, want 40", latest)
	}

	got, err := repo.ListItemsUpdatedSince(ctx, "f1", 15)
	if err != nil {
		t.Fatalf("ListItemsUpdatedSince() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].GUID != "b" || got[1].GUID != "a" {
		t.Errorf("unexpected order: %s, %s", got[0].GUID, got[1].GUID)
	}
	if got[1].Title != "A2" || got[1].CreatedAt != 10 {
		t.Errorf("unexpected updated item: %+v", got[1])
	}
	if got[1].Enclosure == nil || got[1].Enclosure.Length != 1234 {
		t.Errorf("enclosure not round-tripped: %+v", got[1].Enclosure)
	}
	if got[0].Enclosure != nil {
		t.Errorf("expected nil enclosure, got %+v", got[0].Enclosure)
	}

	count, err := repo.GetItemCount(ctx)
	if err != nil || count != 3 {
		t.Errorf("GetItemCount() = %d, %v; want 3", count, err)
	}
}

func loadFeed(t *testing.T, repo *ContentRepo, feedID string) *model.Feed {
	t.Helper()

	feeds, err := repo.ListFeedsUpdatedSince(context.Background(), []string{feedID}, -1)
	if err != nil {
		t.Fatalf("ListFeedsUpdatedSince() error = %v", err)
	}
	if len(feeds) == 0 {
		return nil
	}
	return &feeds[0]
}
