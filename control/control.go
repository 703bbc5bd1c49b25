// control.go — Activity and stop flags shared by the two cores
// ============================================================================
// IDLE COORDINATION
// ============================================================================
//
// Each executor consults one Control between passes:
//   • hot  – set whenever some core made progress; an idle executor keeps
//            spin-polling instead of parking while the flag is up
//   • stop – raised once on shutdown; executors return from Run at their next
//            pass boundary
//
// The hot flag cools down by itself: PollCooldown clears it once no activity
// was signalled for the cooldown window, so quiet systems drop to the
// parked path.
//
// Every field is accessed atomically; the flags are read from both cores.

package control

import (
	"sync/atomic"
	"time"
)

// Control holds the flags for one two-core system. The zero value is usable
// with no hot window (executors park as soon as their spin budget runs out).
type Control struct {
	hot        uint32
	stop       uint32
	lastHot    int64
	cooldownNs int64
	stopHooks  atomic.Pointer[[]func()]
}

// New returns a Control whose hot flag cools down after cooldown.
func New(cooldown time.Duration) *Control {
	return &Control{cooldownNs: int64(cooldown)}
}

// SignalActivity marks the system hot and records the time.
func (c *Control) SignalActivity() {
	if c == nil || c.cooldownNs <= 0 {
		return
	}
	atomic.StoreInt64(&c.lastHot, time.Now().UnixNano())
	atomic.StoreUint32(&c.hot, 1)
}

// PollCooldown clears the hot flag once the cooldown window elapsed.
func (c *Control) PollCooldown() {
	if c == nil {
		return
	}
	if atomic.LoadUint32(&c.hot) == 1 &&
		time.Now().UnixNano()-atomic.LoadInt64(&c.lastHot) > c.cooldownNs {
		atomic.StoreUint32(&c.hot, 0)
	}
}

// Hot reports whether an idle executor should keep spinning.
func (c *Control) Hot() bool {
	return c != nil && atomic.LoadUint32(&c.hot) == 1
}

// OnStop registers fn to run when Shutdown is first called, or immediately if
// it already was. fn must be idempotent. Executors use it to kick themselves
// out of a park.
func (c *Control) OnStop(fn func()) {
	if c == nil {
		return
	}
	for {
		old := c.stopHooks.Load()
		var next []func()
		if old != nil {
			next = append(next, *old...)
		}
		next = append(next, fn)
		if c.stopHooks.CompareAndSwap(old, &next) {
			break
		}
	}
	if c.Stopped() {
		fn()
	}
}

// Shutdown raises the stop flag. Only the first call runs the hooks.
func (c *Control) Shutdown() {
	if c == nil || !atomic.CompareAndSwapUint32(&c.stop, 0, 1) {
		return
	}
	if hooks := c.stopHooks.Load(); hooks != nil {
		for _, fn := range *hooks {
			fn()
		}
	}
}

// Stopped reports whether Shutdown was called.
func (c *Control) Stopped() bool {
	return c != nil && atomic.LoadUint32(&c.stop) == 1
}
