package executor

import "time"

// Delay is a relative sleep usable as a suspension point. It arms on its
// first Poll and re-arms on the Poll after it fired, so one Delay serves a
// periodic loop. A late executor pass just fires late: there is no
// deadline-miss handling.
type Delay struct {
	d        time.Duration
	deadline time.Time
	armed    bool
}

// NewDelay returns a Delay of d.
func NewDelay(d time.Duration) Delay {
	return Delay{d: d}
}

// Poll returns Ready once d has elapsed since the arming Poll.
func (t *Delay) Poll(cx *Context) Poll {
	now := cx.Now()
	if !t.armed {
		t.deadline, t.armed = now.Add(t.d), true
	}
	if !now.Before(t.deadline) {
		t.armed = false
		return Ready
	}
	cx.wakeAt(t.deadline)
	return Pending
}

// Reset disarms the delay.
func (t *Delay) Reset() { t.armed = false }
