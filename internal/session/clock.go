// internal/session/clock.go
package session

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts wall-clock reads and timer scheduling so question-expiry
// logic is deterministic under test. Production code uses the real clock;
// tests inject a FakeClock and advance it explicitly.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer matches the subset of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// NewRealClock returns the production Clock backed by the time package.
func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// FakeClock is a manually advanced Clock. Advance fires due timers
// synchronously on the calling goroutine, which keeps tests free of sleeps.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewFakeClock starts a fake clock at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, firing every timer due at or before the
// new instant in schedule order. Callbacks run without the clock lock held
// so they may schedule further timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	deadline := c.now
	c.mu.Unlock()

	for {
		t := c.popDue(deadline)
		if t == nil {
			return
		}
		t.f()
	}
}

func (c *FakeClock) popDue(deadline time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].at.Before(c.timers[j].at)
	})
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(deadline) {
			t.fired = true
			return t
		}
	}
	return nil
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
