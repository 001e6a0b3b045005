package delta

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/model"
)

type mockTrigger struct {
	mu    sync.Mutex
	calls []model.FeedSyncState
	err   error
}

func (m *mockTrigger) TriggerSync(_ context.Context, st model.FeedSyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, st)
	return m.err
}

type testEnv struct {
	clock         *clock.Fake
	stamper       *clock.Stamper
	syncStates    *database.SyncStateRepo
	subscriptions *database.SubscriptionRepo
	content       *database.ContentRepo
	reads         *database.ReadRepo
	trigger       *mockTrigger
	pusher        *Pusher
	puller        *Puller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "delta.db"))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	env := &testEnv{
		clock:         clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		syncStates:    database.NewSyncStateRepository(db),
		subscriptions: database.NewSubscriptionRepository(db),
		content:       database.NewContentRepository(db),
		reads:         database.NewReadRepository(db),
		trigger:       &mockTrigger{},
	}
	env.stamper = clock.NewStamper(env.clock)
	env.pusher = NewPusher(env.syncStates, env.subscriptions, env.reads, env.trigger, env.stamper)
	env.puller = NewPuller(env.subscriptions, env.content, env.reads, env.stamper)

	return env
}

func (e *testEnv) tick() {
	e.clock.Advance(time.Second)
}

func (e *testEnv) push(t *testing.T, userID string, changes model.ChangesObject) {
	t.Helper()
	e.tick()
	if err := e.pusher.Push(context.Background(), userID, changes); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
}

func (e *testEnv) pull(t *testing.T, userID string, lastPulledAt int64) PullResponse {
	t.Helper()
	e.tick()
	resp, err := e.puller.Pull(context.Background(), userID, lastPulledAt)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	return resp
}

func (e *testEnv) writeItem(t *testing.T, feedID, guid, title string) {
	t.Helper()
	e.tick()
	now := e.stamper.Stamp()
	item := model.FeedItem{FeedID: feedID, GUID: guid, Title: title, CreatedAt: now, UpdatedAt: now}
	if err := e.content.UpsertItem(context.Background(), item); err != nil {
		t.Fatalf("UpsertItem() error = %v", err)
	}
}

func (e *testEnv) writeFeed(t *testing.T, feedID, url string) {
	t.Helper()
	e.tick()
	now := e.stamper.Stamp()
	f := model.Feed{FeedID: feedID, URL: url, Title: "Feed " + feedID, CreatedAt: now, UpdatedAt: now}
	if err := e.content.UpsertFeed(context.Background(), f); err != nil {
		t.Fatalf("UpsertFeed() error = %v", err)
	}
}

func subscribe(userID, feedID, url string) model.ChangesObject {
	changes := model.NewChangesObject()
	changes.UserSubscriptions.Created = []model.UserSubscription{
		{UserID: userID, FeedID: feedID, URL: url, RequestedFrequency: 60},
	}
	return changes
}

func unsubscribe(userID, feedID, url string) model.ChangesObject {
	changes := model.NewChangesObject()
	changes.UserSubscriptions.Deleted = []model.UserSubscription{
		{UserID: userID, FeedID: feedID, URL: url, RequestedFrequency: 60},
	}
	return changes
}
