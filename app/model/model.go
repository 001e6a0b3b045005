// Package model defines the entities shared by the server store, the sync
// protocol and the client replica. Timestamps are Unix milliseconds.
package model

type SyncState string

const (
	SyncStateSyncing SyncState = "SYNCING"
	SyncStateSynced  SyncState = "SYNCED"
	SyncStateFailed  SyncState = "FAILED"
)

type FeedImage struct {
	Link        string `json:"link" yaml:"link"`
	Title       string `json:"title" yaml:"title"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Height      int    `json:"height,omitempty" yaml:"height,omitempty"`
	Width       int    `json:"width,omitempty" yaml:"width,omitempty"`
}

// Feed is shared by every user subscribed to its URL.
type Feed struct {
	FeedID        string     `json:"feedId" yaml:"feedId"`
	URL           string     `json:"url" yaml:"url"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Author        string     `json:"author,omitempty" yaml:"author,omitempty"`
	Category      string     `json:"category,omitempty" yaml:"category,omitempty"`
	Image         *FeedImage `json:"image,omitempty" yaml:"image,omitempty"`
	LastBuildDate int64      `json:"lastBuildDate,omitempty" yaml:"lastBuildDate,omitempty"`
	PubDate       int64      `json:"pubDate,omitempty" yaml:"pubDate,omitempty"`
	SkipDays      []string   `json:"skipDays,omitempty" yaml:"skipDays,omitempty"`
	SkipHours     []int      `json:"skipHours,omitempty" yaml:"skipHours,omitempty"`
	TTL           int        `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
	Deleted   bool  `json:"deleted" yaml:"deleted"`
}

type Enclosure struct {
	URL    string `json:"url" yaml:"url"`
	Type   string `json:"type" yaml:"type"`
	Length int64  `json:"length" yaml:"length"`
}

// FeedItem is identified by (FeedID, GUID). GUID falls back to the item link.
type FeedItem struct {
	FeedID      string     `json:"feedId" yaml:"feedId"`
	GUID        string     `json:"guid" yaml:"guid"`
	PubDate     int64      `json:"pubDate" yaml:"pubDate"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Content     string     `json:"content,omitempty" yaml:"content,omitempty"`
	Author      string     `json:"author,omitempty" yaml:"author,omitempty"`
	Category    string     `json:"category,omitempty" yaml:"category,omitempty"`
	Link        string     `json:"link" yaml:"link"`
	Enclosure   *Enclosure `json:"enclosure,omitempty" yaml:"enclosure,omitempty"`

	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
	Deleted   bool  `json:"deleted" yaml:"deleted"`
}

// FeedSyncState is keyed by URL rather than FeedID so that concurrent first
// subscriptions to one URL agree on a single row before the Feed exists.
type FeedSyncState struct {
	URL             string    `json:"url"`
	FeedID          string    `json:"feedId"`
	SyncStartedAt   int64     `json:"syncStartedAt"`
	SyncCompletedAt int64     `json:"syncCompletedAt"`
	State           SyncState `json:"state"`
	Deleted         bool      `json:"deleted"`
}

// UserSubscription is identified by (UserID, FeedID). RequestedFrequency is in seconds.
type UserSubscription struct {
	UserID             string `json:"userId" yaml:"userId"`
	FeedID             string `json:"feedId" yaml:"feedId"`
	URL                string `json:"url" yaml:"url"`
	RequestedFrequency int64  `json:"requestedFrequency" yaml:"requestedFrequency"`

	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
	Deleted   bool  `json:"deleted" yaml:"deleted"`
}

// UserFeedItemRead is identified by (UserID, GUID). A live row means read, a
// tombstone means explicitly marked unread.
type UserFeedItemRead struct {
	UserID string `json:"userId" yaml:"userId"`
	GUID   string `json:"guid" yaml:"guid"`
	FeedID string `json:"feedId,omitempty" yaml:"feedId,omitempty"`

	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" yaml:"updatedAt"`
	Deleted   bool  `json:"deleted" yaml:"deleted"`
}

func (i FeedItem) Key() string {
	return i.FeedID + "\x00" + i.GUID
}

func (s UserSubscription) Key() string {
	return s.UserID + "\x00" + s.FeedID
}

func (r UserFeedItemRead) Key() string {
	return r.UserID + "\x00" + r.GUID
}
