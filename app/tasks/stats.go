package tasks

import (
	"sync"
	"time"

	"github.com/lysyi3m/rss-sync/app/model"
)

// Stats holds scheduler statistics
type Stats struct {
	Ticks           int64         `json:"ticks"`
	FeedsSelected   int64         `json:"feeds_selected"`
	FeedsSynced     int64         `json:"feeds_synced"`
	FeedsFailed     int64         `json:"feeds_failed"`
	TotalErrors     int64         `json:"total_errors"`
	QueueSize       int           `json:"queue_size"`
	LastTickAt      *time.Time    `json:"last_tick_at,omitempty"`
	AverageSyncTime time.Duration `json:"average_sync_time"`
}

type statsRecorder struct {
	mu        sync.Mutex
	stats     Stats
	syncTimes []time.Duration
}

func (r *statsRecorder) recordTick(at time.Time, selected int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Ticks++
	r.stats.FeedsSelected += int64(selected)
	r.stats.LastTickAt = &at
}

func (r *statsRecorder) recordSync(res Result, err error, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch res.State {
	case model.SyncStateSynced:
		r.stats.FeedsSynced++
	case model.SyncStateFailed:
		r.stats.FeedsFailed++
	}
	if err != nil {
		r.stats.TotalErrors++
	}

	r.syncTimes = append(r.syncTimes, duration)
	if len(r.syncTimes) > 100 {
		r.syncTimes = r.syncTimes[1:] // Keep only last 100
	}

	var total time.Duration
	for _, t := range r.syncTimes {
		total += t
	}
	r.stats.AverageSyncTime = total / time.Duration(len(r.syncTimes))
}

func (r *statsRecorder) recordError() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalErrors++
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}
