// critical.go
//
// Cross-core critical section.  Both cores run on their own locked OS
// threads, so a same-thread flag is not enough: the lock word is claimed with
// a CAS and released with an atomic store, which orders every write made
// inside the section before the next owner's reads, whichever core it runs on.
//
// Waiting follows the pinned-consumer spin discipline: a short burst of
// cpuRelax polls, then runtime.Gosched so a waiter never starves the holder
// when both land on one CPU.
//
// Sections are expected to be short (free-list walks, waker registration);
// nothing inside one may suspend.

package critical

import (
	"runtime"
	"sync/atomic"
)

// spinBudget is the number of relaxed polls before yielding the thread.
const spinBudget = 64

// Mutex is a spin lock usable from any core. The zero value is unlocked.
type Mutex struct {
	state uint32
}

// Lock acquires m, spinning until it is free.
func (m *Mutex) Lock() {
	if atomic.CompareAndSwapUint32(&m.state, 0, 1) {
		return
	}
	miss := 0
	for {
		if atomic.LoadUint32(&m.state) == 0 &&
			atomic.CompareAndSwapUint32(&m.state, 0, 1) {
			return
		}
		if miss++; miss >= spinBudget {
			miss = 0
			runtime.Gosched()
			continue
		}
		cpuRelax()
	}
}

// TryLock acquires m if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	return atomic.CompareAndSwapUint32(&m.state, 0, 1)
}

// Unlock releases m. Unlocking a free Mutex is a programming error.
func (m *Mutex) Unlock() {
	if atomic.SwapUint32(&m.state, 0) == 0 {
		panic("critical: unlock of unlocked mutex")
	}
}

// With runs fn inside the section. The lock is released even if fn panics,
// so an aborted caller never leaves it held.
func (m *Mutex) With(fn func()) {
	m.Lock()
	defer m.Unlock()
	fn()
}
