package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-sync/app/clock"
	"github.com/lysyi3m/rss-sync/app/database"
	"github.com/lysyi3m/rss-sync/app/lease"
	"github.com/lysyi3m/rss-sync/app/model"
)

const tickLeaseKey = "rss-sync:scheduler:tick"

type Options struct {
	Interval             time.Duration
	WorkerCount          int
	BatchSize            int
	MinFeedAge           time.Duration
	MinSyncAgeFailedFeed time.Duration
	TaskTimeout          time.Duration
}

type Scheduler struct {
	executor      SyncExecutor
	syncStates    database.SyncStateRepository
	subscriptions database.SubscriptionRepository
	locker        lease.Locker
	clock         clock.Clock
	opts          Options
	stats         statsRecorder
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface
}

func NewScheduler(executor SyncExecutor, syncStates database.SyncStateRepository,
	subscriptions database.SubscriptionRepository, locker lease.Locker, c clock.Clock, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 5 * time.Minute
	}

	return &Scheduler{
		executor:      executor,
		syncStates:    syncStates,
		subscriptions: subscriptions,
		locker:        locker,
		clock:         c,
		opts:          opts,
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runTick()

		for {
			fire := make(chan struct{}, 1)
			timer := s.clock.AfterFunc(s.opts.Interval, func() { fire <- struct{}{} })

			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-fire:
				s.runTick()
			}
		}
	}()
}

// Stop cancels the ticker and the workers. EnqueueTask after Stop returns the context error.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// TriggerSync queues an out-of-band sync of a feed, used when a URL gets its first subscriber.
func (s *Scheduler) TriggerSync(_ context.Context, state model.FeedSyncState) error {
	return s.EnqueueTask(NewSyncFeedTask(state, s.executor))
}

func (s *Scheduler) GetStats() Stats {
	stats := s.stats.snapshot()
	stats.QueueSize = len(s.taskQueue)
	return stats
}

func (s *Scheduler) runTick() {
	if err := s.Tick(s.ctx); err != nil {
		s.stats.recordError()
		slog.Error("Scheduler tick failed", "error", err)
	}
}

// Tick selects due feeds and syncs them in sequential batches of concurrent
// executions. A store error stops the tick once its batch has finished.
func (s *Scheduler) Tick(ctx context.Context) error {
	acquired, err := s.locker.Acquire(ctx, tickLeaseKey, s.opts.Interval)
	if err != nil {
		return fmt.Errorf("failed to acquire tick lease: %w", err)
	}
	if !acquired {
		slog.Debug("Tick lease held elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), tickLeaseKey); err != nil {
			slog.Warn("Failed to release tick lease", "error", err)
		}
	}()

	now := s.clock.Now()

	due, err := s.selectDue(ctx, now)
	if err != nil {
		return err
	}

	s.stats.recordTick(now, len(due))

	if len(due) == 0 {
		slog.Debug("No feeds due for sync")
		return nil
	}

	slog.Debug("Feeds due for sync", "count", len(due), "batch_size", s.opts.BatchSize)

	for start := 0; start < len(due); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(due))

		if err := s.runBatch(ctx, due[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scheduler) selectDue(ctx context.Context, now time.Time) ([]model.FeedSyncState, error) {
	states, err := s.syncStates.ListDue(ctx, clock.Millis(now.Add(-s.opts.MinFeedAge)))
	if err != nil {
		return nil, fmt.Errorf("failed to list due feeds: %w", err)
	}

	var due []model.FeedSyncState
	for _, st := range states {
		subs, err := s.subscriptions.ListByFeed(ctx, st.FeedID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscribers of %s: %w", st.URL, err)
		}

		minFrequency, ok := MinRequestedFrequency(subs)
		if !ok {
			slog.Debug("Feed has no subscribers, skipping", "feed", st.URL)
			continue
		}

		if !IsDue(st, minFrequency, now, s.opts.MinSyncAgeFailedFeed) {
			slog.Debug("Feed not due for sync yet",
				"feed", st.URL,
				"state", string(st.State),
				"min_frequency", minFrequency)
			continue
		}

		due = append(due, st)
	}

	return due, nil
}

func (s *Scheduler) runBatch(ctx context.Context, batch []model.FeedSyncState) error {
	var g errgroup.Group

	for _, st := range batch {
		g.Go(func() error {
			started := time.Now()

			taskCtx, cancel := context.WithTimeout(ctx, s.opts.TaskTimeout)
			defer cancel()

			res, err := s.executor.Sync(taskCtx, st)
			s.stats.recordSync(res, err, time.Since(started))
			return err
		})
	}

	return g.Wait()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.opts.TaskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if syncTask, ok := task.(*SyncFeedTask); ok {
		s.stats.recordSync(syncTask.Result(), err, task.GetDuration())
	}

	if err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"feed", task.GetFeedURL(),
			"error", err)
	}
}
