package model

// EntityKind enumerates the synced tables.
type EntityKind string

const (
	KindFeed             EntityKind = "feeds"
	KindFeedItem         EntityKind = "feedItems"
	KindUserSubscription EntityKind = "userSubscriptions"
	KindFeedItemRead     EntityKind = "feedItemReads"
)

var EntityKinds = []EntityKind{KindFeed, KindFeedItem, KindUserSubscription, KindFeedItemRead}

// Syncable is implemented by every entity carrying the tombstone convention.
type Syncable interface {
	Feed | FeedItem | UserSubscription | UserFeedItemRead
}

type ChangeSpecs[T Syncable] struct {
	Created []T `json:"created" yaml:"created"`
	Updated []T `json:"updated" yaml:"updated"`
	Deleted []T `json:"deleted" yaml:"deleted"`
}

// All flattens created, updated and deleted in that order.
func (c ChangeSpecs[T]) All() []T {
	all := make([]T, 0, c.Len())
	all = append(all, c.Created...)
	all = append(all, c.Updated...)
	all = append(all, c.Deleted...)
	return all
}

// Merge appends o to c section by section.
func (c ChangeSpecs[T]) Merge(o ChangeSpecs[T]) ChangeSpecs[T] {
	c.Created = append(c.Created, o.Created...)
	c.Updated = append(c.Updated, o.Updated...)
	c.Deleted = append(c.Deleted, o.Deleted...)
	return c
}

func (c ChangeSpecs[T]) Len() int {
	return len(c.Created) + len(c.Updated) + len(c.Deleted)
}

// Normalize replaces nil slices with empty ones so the wire form always
// carries three arrays.
func (c ChangeSpecs[T]) Normalize() ChangeSpecs[T] {
	if c.Created == nil {
		c.Created = []T{}
	}
	if c.Updated == nil {
		c.Updated = []T{}
	}
	if c.Deleted == nil {
		c.Deleted = []T{}
	}
	return c
}

type ChangesObject struct {
	Feeds             ChangeSpecs[Feed]             `json:"feeds" yaml:"feeds"`
	FeedItems         ChangeSpecs[FeedItem]         `json:"feedItems" yaml:"feedItems"`
	UserSubscriptions ChangeSpecs[UserSubscription] `json:"userSubscriptions" yaml:"userSubscriptions"`
	FeedItemReads     ChangeSpecs[UserFeedItemRead] `json:"feedItemReads" yaml:"feedItemReads"`
}

func NewChangesObject() ChangesObject {
	return ChangesObject{}.Normalize()
}

func (c ChangesObject) Normalize() ChangesObject {
	c.Feeds = c.Feeds.Normalize()
	c.FeedItems = c.FeedItems.Normalize()
	c.UserSubscriptions = c.UserSubscriptions.Normalize()
	c.FeedItemReads = c.FeedItemReads.Normalize()
	return c
}

// Count returns the number of rows per entity kind.
func (c ChangesObject) Count() map[EntityKind]int {
	return map[EntityKind]int{
		KindFeed:             c.Feeds.Len(),
		KindFeedItem:         c.FeedItems.Len(),
		KindUserSubscription: c.UserSubscriptions.Len(),
		KindFeedItemRead:     c.FeedItemReads.Len(),
	}
}

func (c ChangesObject) IsEmpty() bool {
	for _, n := range c.Count() {
		if n > 0 {
			return false
		}
	}
	return true
}

type timestamped interface {
	stamps() (createdAt, updatedAt int64, deleted bool)
}

func (f Feed) stamps() (int64, int64, bool)             { return f.CreatedAt, f.UpdatedAt, f.Deleted }
func (i FeedItem) stamps() (int64, int64, bool)         { return i.CreatedAt, i.UpdatedAt, i.Deleted }
func (s UserSubscription) stamps() (int64, int64, bool) { return s.CreatedAt, s.UpdatedAt, s.Deleted }
func (r UserFeedItemRead) stamps() (int64, int64, bool) { return r.CreatedAt, r.UpdatedAt, r.Deleted }

// Split classifies rows fetched because they changed after lastPulledAt.
// A tombstone is always reported as deleted, even when it was also created
// after the watermark. Rows that did not change after the watermark are dropped.
func Split[T Syncable](rows []T, lastPulledAt int64) ChangeSpecs[T] {
	out := ChangeSpecs[T]{}.Normalize()
	for _, row := range rows {
		createdAt, updatedAt, deleted := any(row).(timestamped).stamps()
		switch {
		case deleted && updatedAt > lastPulledAt:
			out.Deleted = append(out.Deleted, row)
		case deleted:
		case createdAt > lastPulledAt:
			out.Created = append(out.Created, row)
		case updatedAt > lastPulledAt:
			out.Updated = append(out.Updated, row)
		}
	}
	return out
}
