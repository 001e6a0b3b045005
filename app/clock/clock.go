// Package clock provides the time source shared by the scheduler, the sync
// handlers and the client engine.
package clock

import (
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Millis converts t to Unix milliseconds, the unit of every entity timestamp.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Stamper hands out strictly increasing millisecond timestamps. Two calls
// never return the same value, even when the underlying clock has not moved.
//
// A write spanning several rows under one stamp is bracketed by Begin and
// Done. Watermark stays below every such stamp until its write is done, so a
// reader never moves past rows that are not committed yet.
type Stamper struct {
	clock    Clock
	mu       sync.Mutex
	last     int64
	inflight map[int64]struct{}
}

func NewStamper(c Clock) *Stamper {
	return &Stamper{clock: c, inflight: make(map[int64]struct{})}
}

func (s *Stamper) Stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextLocked()
}

// Begin returns the stamp of a multi-row write. Call Done once every row is written.
func (s *Stamper) Begin() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.nextLocked()
	s.inflight[stamp] = struct{}{}
	return stamp
}

func (s *Stamper) Done(stamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, stamp)
}

// Watermark returns a fresh stamp, lowered to just below the oldest write
// still in flight. Every row stamped at or below it is committed.
func (s *Stamper) Watermark() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark := s.nextLocked()
	for stamp := range s.inflight {
		mark = min(mark, stamp-1)
	}
	return mark
}

func (s *Stamper) nextLocked() int64 {
	now := Millis(s.clock.Now())
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}
