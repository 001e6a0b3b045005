// Package delta computes and merges per-user change sets for the pull/push
// sync protocol.
package delta

import (
	"context"
	"errors"

	"github.com/lysyi3m/rss-sync/app/model"
)

// ErrInvalidChange marks a pushed row that cannot be merged.
var ErrInvalidChange = errors.New("invalid change")

type PullResponse struct {
	Changes   model.ChangesObject `json:"changes"`
	Timestamp int64               `json:"timestamp"`
}

// FeedSyncTrigger starts a sync of a freshly bootstrapped feed without waiting for the scheduler.
type FeedSyncTrigger interface {
	TriggerSync(ctx context.Context, state model.FeedSyncState) error
}
