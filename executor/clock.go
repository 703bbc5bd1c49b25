package executor

import (
	"sync"
	"time"
)

// Clock is the time source of an executor.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// subscriber is implemented by clocks that move on their own schedule and
// must kick parked executors when they do.
type subscriber interface {
	subscribe(kick func())
}

// ManualClock only moves when told to. Every executor using it is kicked on
// Advance/Set so due delays fire without real waiting.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	subs []func()
}

var _ subscriber = (*ManualClock)(nil)

// NewManualClock starts the clock at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	subs := c.subs
	c.mu.Unlock()
	for _, kick := range subs {
		kick()
	}
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	subs := c.subs
	c.mu.Unlock()
	for _, kick := range subs {
		kick()
	}
}

func (c *ManualClock) subscribe(kick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs[:len(c.subs):len(c.subs)], kick)
}
