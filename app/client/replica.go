package client

import "github.com/lysyi3m/rss-sync/app/model"

// Replica is the client's local copy of the user's slice of the store plus
// the local mutations not yet acknowledged by the server.
type Replica interface {
	UserID() string
	Watermark() int64

	// Apply merges pulled changes and then records timestamp as the new watermark.
	Apply(changes model.ChangesObject, timestamp int64) error
	// Pending returns unpushed local changes and the sequence number to Ack
	// once the server accepted them.
	Pending() (model.ChangesObject, uint64)
	Ack(seq uint64) error

	Subscribe(url string, frequency int64) (model.UserSubscription, error)
	Unsubscribe(url string) error
	MarkRead(feedID, guid string) error
	MarkUnread(guid string) error

	Subscriptions() []model.UserSubscription
	Feeds() []model.Feed
	Items(feedID string) []model.FeedItem
	IsRead(guid string) bool
}

var (
	_ Replica   = (*MemoryReplica)(nil)
	_ Replica   = (*FileReplica)(nil)
	_ Transport = (*HTTPTransport)(nil)
)
