package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-sync/app/clock"
)

const (
	DefaultPollInterval  = 60 * time.Second
	DefaultDebounce      = 500 * time.Millisecond
	DefaultFollowUpDelay = time.Second
)

type Options struct {
	PollInterval  time.Duration
	Debounce      time.Duration
	FollowUpDelay time.Duration
}

// Engine keeps a Replica in sync with the server: a push-then-pull on
// connect, a periodic poll, and a debounced push after local mutations.
type Engine struct {
	transport Transport
	replica   Replica
	clock     clock.Clock
	opts      Options

	// cycleMu serializes sync cycles.
	cycleMu sync.Mutex

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	poll      clock.Timer
	debounce  clock.Timer
	followUp  clock.Timer
}

func NewEngine(transport Transport, replica Replica, c clock.Clock, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.FollowUpDelay <= 0 {
		opts.FollowUpDelay = DefaultFollowUpDelay
	}

	return &Engine{
		transport: transport,
		replica:   replica,
		clock:     c,
		opts:      opts,
	}
}

// Connect runs one push-then-pull cycle from the persisted watermark and
// starts polling. A failed first cycle is returned but polling still starts.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	if e.connected {
		e.mu.Unlock()
		return nil
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.connected = true
	e.mu.Unlock()

	slog.Info("Sync engine connected",
		"watermark", e.replica.Watermark(),
		"poll_interval", e.opts.PollInterval)

	err := e.sync(true)

	e.mu.Lock()
	e.schedulePollLocked()
	e.mu.Unlock()

	return err
}

// Disconnect cancels every pending timer. No network call is made afterwards.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return
	}
	e.connected = false
	e.cancel()

	for _, timer := range []clock.Timer{e.poll, e.debounce, e.followUp} {
		if timer != nil {
			timer.Stop()
		}
	}
	e.poll, e.debounce, e.followUp = nil, nil, nil

	slog.Info("Sync engine disconnected")
}

// NotifyLocalChange schedules a push of pending local changes after the
// debounce delay. Repeated calls within the delay collapse into one push.
func (e *Engine) NotifyLocalChange() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return
	}
	if e.debounce != nil {
		e.debounce.Stop()
	}
	e.debounce = e.clock.AfterFunc(e.opts.Debounce, e.onDebounce)
}

func (e *Engine) onDebounce() {
	if !e.isConnected() {
		return
	}

	if err := e.sync(false); err != nil {
		slog.Warn("Failed to push local changes", "error", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return
	}
	if e.followUp != nil {
		e.followUp.Stop()
	}
	e.followUp = e.clock.AfterFunc(e.opts.FollowUpDelay, e.onFollowUp)
	e.schedulePollLocked()
}

func (e *Engine) onFollowUp() {
	if err := e.syncIfConnected(); err != nil {
		slog.Warn("Follow-up pull failed", "error", err)
	}
}

func (e *Engine) onPoll() {
	if err := e.syncIfConnected(); err != nil {
		slog.Warn("Scheduled sync failed", "error", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connected {
		e.schedulePollLocked()
	}
}

func (e *Engine) syncIfConnected() error {
	if !e.isConnected() {
		return nil
	}
	return e.sync(true)
}

func (e *Engine) schedulePollLocked() {
	if !e.connected {
		return
	}
	if e.poll != nil {
		e.poll.Stop()
	}
	e.poll = e.clock.AfterFunc(e.opts.PollInterval, e.onPoll)
}

func (e *Engine) isConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *Engine) syncContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}

// sync pushes pending local changes, then pulls when pull is set.
func (e *Engine) sync(pull bool) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	start := time.Now()
	ctx := e.syncContext()

	changes, seq := e.replica.Pending()
	if !changes.IsEmpty() {
		if !e.isConnected() {
			return nil
		}
		if err := e.transport.Push(ctx, changes); err != nil {
			return err
		}
		if err := e.replica.Ack(seq); err != nil {
			return fmt.Errorf("failed to acknowledge pushed changes: %w", err)
		}
		slog.Debug("Pushed local changes", "changes", changes.Count())
	}

	if !pull || !e.isConnected() {
		return nil
	}

	watermark := e.replica.Watermark()
	result, err := e.transport.Pull(ctx, watermark)
	if err != nil {
		return err
	}
	if err := e.replica.Apply(result.Changes, result.Timestamp); err != nil {
		return fmt.Errorf("failed to apply pulled changes: %w", err)
	}

	slog.Debug("Sync cycle completed",
		"last_pulled_at", watermark,
		"timestamp", result.Timestamp,
		"changes", result.Changes.Count(),
		"duration", time.Since(start))

	return nil
}
