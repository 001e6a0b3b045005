package tasks

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/lysyi3m/rss-sync/app/feed"
	"github.com/lysyi3m/rss-sync/app/model"
)

var errStore = errors.New("database is locked")

type mockSyncStateRepo struct {
	mu      sync.Mutex
	states  map[string]model.FeedSyncState
	markErr error
}

func newMockSyncStateRepo(states ...model.FeedSyncState) *mockSyncStateRepo {
	m := &mockSyncStateRepo{states: make(map[string]model.FeedSyncState)}
	for _, st := range states {
		m.states[st.URL] = st
	}
	return m
}

func (m *mockSyncStateRepo) ListDue(_ context.Context, completedBefore int64) ([]model.FeedSyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []model.FeedSyncState
	for _, st := range m.states {
		if !st.Deleted && st.SyncCompletedAt < completedBefore {
			due = append(due, st)
		}
	}
	slices.SortFunc(due, func(a, b model.FeedSyncState) int {
		return cmp.Compare(a.SyncCompletedAt, b.SyncCompletedAt)
	})
	return due, nil
}

func (m *mockSyncStateRepo) GetByURLs(_ context.Context, urls []string) (map[string]model.FeedSyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]model.FeedSyncState)
	for _, u := range urls {
		if st, ok := m.states[u]; ok {
			result[u] = st
		}
	}
	return result, nil
}

func (m *mockSyncStateRepo) InsertIfAbsent(_ context.Context, st model.FeedSyncState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[st.URL]; ok {
		return false, nil
	}
	m.states[st.URL] = st
	return true, nil
}

func (m *mockSyncStateRepo) MarkSyncing(_ context.Context, url string, startedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.markErr != nil {
		return m.markErr
	}
	st := m.states[url]
	st.State = model.SyncStateSyncing
	st.SyncStartedAt = startedAt
	m.states[url] = st
	return nil
}

func (m *mockSyncStateRepo) MarkCompleted(_ context.Context, url string, state model.SyncState, completedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.markErr != nil {
		return m.markErr
	}
	st := m.states[url]
	st.State = state
	st.SyncCompletedAt = completedAt
	m.states[url] = st
	return nil
}

func (m *mockSyncStateRepo) GetCountByState(_ context.Context) (map[model.SyncState]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[model.SyncState]int)
	for _, st := range m.states {
		counts[st.State]++
	}
	return counts, nil
}

func (m *mockSyncStateRepo) get(url string) model.FeedSyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[url]
}

type mockSubscriptionRepo struct {
	subs []model.UserSubscription
}

func (m *mockSubscriptionRepo) ListByFeed(_ context.Context, feedID string) ([]model.UserSubscription, error) {
	var out []model.UserSubscription
	for _, s := range m.subs {
		if s.FeedID == feedID && !s.Deleted {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubscriptionRepo) ListByUserSince(_ context.Context, userID string, since int64) ([]model.UserSubscription, error) {
	var out []model.UserSubscription
	for _, s := range m.subs {
		if s.UserID == userID && s.UpdatedAt > since {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubscriptionRepo) ListActiveByUser(_ context.Context, userID string) ([]model.UserSubscription, error) {
	var out []model.UserSubscription
	for _, s := range m.subs {
		if s.UserID == userID && !s.Deleted {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubscriptionRepo) Upsert(_ context.Context, sub model.UserSubscription) error {
	m.subs = append(m.subs, sub)
	return nil
}

type mockContentRepo struct {
	mu            sync.Mutex
	feeds         map[string]model.Feed
	items         map[string]model.FeedItem
	upsertFeedErr error
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{
		feeds: make(map[string]model.Feed),
		items: make(map[string]model.FeedItem),
	}
}

func (m *mockContentRepo) UpsertFeed(_ context.Context, f model.Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertFeedErr != nil {
		return m.upsertFeedErr
	}
	m.feeds[f.FeedID] = f
	return nil
}

func (m *mockContentRepo) ListFeedsUpdatedSince(_ context.Context, feedIDs []string, since int64) ([]model.Feed, error) {
	return nil, nil
}

func (m *mockContentRepo) GetFeedCount(_ context.Context) (int, error) {
	return len(m.feeds), nil
}

func (m *mockContentRepo) LatestItemUpdatedAt(_ context.Context, feedID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest int64
	for _, it := range m.items {
		if it.FeedID == feedID && it.UpdatedAt > latest {
			latest = it.UpdatedAt
		}
	}
	return latest, nil
}

func (m *mockContentRepo) UpsertItem(_ context.Context, item model.FeedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.items[item.Key()]; ok {
		item.CreatedAt = existing.CreatedAt
	}
	m.items[item.Key()] = item
	return nil
}

func (m *mockContentRepo) ListItemsUpdatedSince(_ context.Context, feedID string, since int64) ([]model.FeedItem, error) {
	return nil, nil
}

func (m *mockContentRepo) GetItemCount(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *mockContentRepo) item(feedID, guid string) (model.FeedItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[model.FeedItem{FeedID: feedID, GUID: guid}.Key()]
	return it, ok
}

type mockFetcher struct {
	doc *feed.Document
	err error
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*feed.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

type mockExecutor struct {
	mu      sync.Mutex
	calls   []string
	results map[string]Result
	errs    map[string]error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		results: make(map[string]Result),
		errs:    make(map[string]error),
	}
}

func (m *mockExecutor) Sync(_ context.Context, st model.FeedSyncState) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, st.URL)

	res, ok := m.results[st.URL]
	if !ok {
		res = Result{URL: st.URL, FeedID: st.FeedID, State: model.SyncStateSynced}
	}
	return res, m.errs[st.URL]
}

func (m *mockExecutor) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
