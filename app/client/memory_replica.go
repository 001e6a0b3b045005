package client

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/model"
)

// pendingChange is the latest local mutation of one subscription or read row.
type pendingChange struct {
	Seq          uint64                  `yaml:"seq"`
	Created      bool                    `yaml:"created,omitempty"`
	Subscription *model.UserSubscription `yaml:"subscription,omitempty"`
	Read         *model.UserFeedItemRead `yaml:"read,omitempty"`
}

func (p pendingChange) key() string {
	if p.Subscription != nil {
		return subscriptionKey(p.Subscription.URL)
	}
	return readKey(p.Read.GUID)
}

func subscriptionKey(url string) string { return "sub:" + url }
func readKey(guid string) string        { return "read:" + guid }

// MemoryReplica keeps the replica in memory. Subscriptions are keyed by URL
// so a row pushed with a tentative feed id is replaced by the server's row
// carrying the canonical one.
type MemoryReplica struct {
	mu    sync.Mutex
	clock clock.Clock

	userID        string
	watermark     int64
	seq           uint64
	feeds         map[string]model.Feed
	items         map[string]model.FeedItem
	subscriptions map[string]model.UserSubscription
	reads         map[string]model.UserFeedItemRead
	pending       map[string]pendingChange

	// persist is called with the lock held after every state change.
	persist func() error
}

func NewMemoryReplica(userID string, c clock.Clock) *MemoryReplica {
	return &MemoryReplica{
		clock:         c,
		userID:        userID,
		feeds:         make(map[string]model.Feed),
		items:         make(map[string]model.FeedItem),
		subscriptions: make(map[string]model.UserSubscription),
		reads:         make(map[string]model.UserFeedItemRead),
		pending:       make(map[string]pendingChange),
		persist:       func() error { return nil },
	}
}

func (r *MemoryReplica) UserID() string {
	return r.userID
}

func (r *MemoryReplica) Watermark() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watermark
}

func (r *MemoryReplica) Apply(changes model.ChangesObject, timestamp int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, feed := range changes.Feeds.All() {
		if feed.Deleted {
			delete(r.feeds, feed.FeedID)
			continue
		}
		r.feeds[feed.FeedID] = feed
	}

	for _, item := range changes.FeedItems.All() {
		if item.Deleted {
			delete(r.items, item.Key())
			continue
		}
		r.items[item.Key()] = item
	}

	for _, sub := range changes.UserSubscriptions.All() {
		if _, dirty := r.pending[subscriptionKey(sub.URL)]; dirty {
			continue
		}
		if sub.Deleted {
			delete(r.subscriptions, sub.URL)
			continue
		}
		r.subscriptions[sub.URL] = sub
	}

	for _, read := range changes.FeedItemReads.All() {
		if _, dirty := r.pending[readKey(read.GUID)]; dirty {
			continue
		}
		if read.Deleted {
			delete(r.reads, read.GUID)
			continue
		}
		r.reads[read.GUID] = read
	}

	r.watermark = timestamp

	return r.persist()
}

func (r *MemoryReplica) Pending() (model.ChangesObject, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changes := model.NewChangesObject()
	for _, change := range r.sortedPendingLocked() {
		if change.Subscription != nil {
			changes.UserSubscriptions = appendChange(changes.UserSubscriptions, *change.Subscription, change.Created, change.Subscription.Deleted)
		} else {
			changes.FeedItemReads = appendChange(changes.FeedItemReads, *change.Read, change.Created, change.Read.Deleted)
		}
	}
	return changes, r.seq
}

func appendChange[T model.Syncable](specs model.ChangeSpecs[T], row T, created, deleted bool) model.ChangeSpecs[T] {
	switch {
	case deleted:
		specs.Deleted = append(specs.Deleted, row)
	case created:
		specs.Created = append(specs.Created, row)
	default:
		specs.Updated = append(specs.Updated, row)
	}
	return specs
}

// Ack drops pending changes up to seq. Mutations made after the matching
// Pending call carry a higher seq and stay queued.
func (r *MemoryReplica) Ack(seq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, change := range r.pending {
		if change.Seq <= seq {
			delete(r.pending, key)
		}
	}
	return r.persist()
}

// Subscribe creates or updates the subscription to url. A new subscription
// reuses a known feed id for the URL or gets a tentative one.
func (r *MemoryReplica) Subscribe(url string, frequency int64) (model.UserSubscription, error) {
	if url == "" {
		return model.UserSubscription{}, fmt.Errorf("subscription url is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := clock.Millis(r.clock.Now())
	sub, exists := r.subscriptions[url]
	if !exists {
		sub = model.UserSubscription{
			UserID:    r.userID,
			FeedID:    r.feedIDForLocked(url),
			URL:       url,
			CreatedAt: now,
		}
	}
	sub.RequestedFrequency = frequency
	sub.UpdatedAt = now
	sub.Deleted = false

	r.subscriptions[url] = sub
	r.queueLocked(pendingChange{Subscription: &sub, Created: !exists})

	return sub, r.persist()
}

func (r *MemoryReplica) Unsubscribe(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscriptions[url]
	if !ok {
		return nil
	}
	delete(r.subscriptions, url)

	sub.UpdatedAt = clock.Millis(r.clock.Now())
	sub.Deleted = true
	r.queueLocked(pendingChange{Subscription: &sub})

	return r.persist()
}

func (r *MemoryReplica) MarkRead(feedID, guid string) error {
	if guid == "" {
		return fmt.Errorf("item guid is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := clock.Millis(r.clock.Now())
	read, exists := r.reads[guid]
	if !exists {
		read = model.UserFeedItemRead{UserID: r.userID, GUID: guid, FeedID: feedID, CreatedAt: now}
	}
	read.UpdatedAt = now
	read.Deleted = false

	r.reads[guid] = read
	r.queueLocked(pendingChange{Read: &read, Created: !exists})

	return r.persist()
}

// MarkUnread records an explicit unread as a read tombstone.
func (r *MemoryReplica) MarkUnread(guid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := clock.Millis(r.clock.Now())
	read, exists := r.reads[guid]
	if !exists {
		read = model.UserFeedItemRead{UserID: r.userID, GUID: guid, CreatedAt: now}
	}
	delete(r.reads, guid)

	read.UpdatedAt = now
	read.Deleted = true
	r.queueLocked(pendingChange{Read: &read})

	return r.persist()
}

func (r *MemoryReplica) Subscriptions() []model.UserSubscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]model.UserSubscription, 0, len(r.subscriptions))
	for _, sub := range r.subscriptions {
		subs = append(subs, sub)
	}
	slices.SortFunc(subs, func(a, b model.UserSubscription) int { return cmp.Compare(a.URL, b.URL) })
	return subs
}

func (r *MemoryReplica) Feeds() []model.Feed {
	r.mu.Lock()
	defer r.mu.Unlock()

	feeds := make([]model.Feed, 0, len(r.feeds))
	for _, feed := range r.feeds {
		feeds = append(feeds, feed)
	}
	slices.SortFunc(feeds, func(a, b model.Feed) int { return cmp.Compare(a.URL, b.URL) })
	return feeds
}

// Items returns the feed's items, newest first.
func (r *MemoryReplica) Items(feedID string) []model.FeedItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []model.FeedItem
	for _, item := range r.items {
		if item.FeedID == feedID {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b model.FeedItem) int {
		return cmp.Or(cmp.Compare(b.PubDate, a.PubDate), cmp.Compare(a.GUID, b.GUID))
	})
	return items
}

func (r *MemoryReplica) IsRead(guid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.reads[guid]
	return ok
}

func (r *MemoryReplica) feedIDForLocked(url string) string {
	for _, feed := range r.feeds {
		if feed.URL == url {
			return feed.FeedID
		}
	}
	return uuid.NewString()
}

// queueLocked records change as the latest local mutation of its key. A row
// created locally stays "created" until the server acknowledges it.
func (r *MemoryReplica) queueLocked(change pendingChange) {
	key := change.key()
	if prev, ok := r.pending[key]; ok && prev.Created {
		change.Created = true
	}
	r.seq++
	change.Seq = r.seq
	r.pending[key] = change
}

func (r *MemoryReplica) sortedPendingLocked() []pendingChange {
	changes := make([]pendingChange, 0, len(r.pending))
	for _, change := range r.pending {
		changes = append(changes, change)
	}
	slices.SortFunc(changes, func(a, b pendingChange) int { return cmp.Compare(a.Seq, b.Seq) })
	return changes
}
