package tasks

import (
	"time"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/model"
)

const (
	DefaultInterval             = 5 * time.Minute
	DefaultMinFeedAge           = 5 * time.Minute
	DefaultMinSyncAgeFailedFeed = 15 * time.Minute
	DefaultBatchSize            = 10
)

// MinRequestedFrequency returns the most demanding frequency among subs. A
// zero frequency makes the feed due whenever MinFeedAge allows.
// ok is false when there are no subscribers.
func MinRequestedFrequency(subs []model.UserSubscription) (freq time.Duration, ok bool) {
	for _, sub := range subs {
		if sub.Deleted {
			continue
		}

		d := time.Duration(max(sub.RequestedFrequency, 0)) * time.Second
		if !ok || d < freq {
			freq = d
			ok = true
		}
	}
	return freq, ok
}

// IsDue applies the per-feed selection policy to a row already past the MinFeedAge floor.
func IsDue(st model.FeedSyncState, minFrequency time.Duration, now time.Time, failedCooldown time.Duration) bool {
	age := now.Sub(clock.FromMillis(st.SyncCompletedAt))

	if age <= minFrequency {
		return false
	}
	if st.State == model.SyncStateFailed && age <= failedCooldown {
		return false
	}
	return true
}
