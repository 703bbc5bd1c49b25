package launcher

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"twincore/debug"
)

var (
	ErrCoreStart   = errors.New("launcher: core start failed")
	ErrCoreAbsent  = errors.New("launcher: no such cpu")
	ErrCoreStarted = errors.New("launcher: core already started")
)

// Core is one physical execution unit: a goroutine locked to its own OS
// thread and, when CPU >= 0, pinned to that logical CPU.
type Core struct {
	ID  int
	CPU int
	Log *debug.Logger

	started atomic.Bool
}

// Start runs entry on a fresh thread-locked goroutine and returns a channel
// that receives entry's result. The core can be started once.
func (c *Core) Start(stack *Stack, entry func() error) (<-chan error, error) {
	if err := c.claim(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		c.bind(stack)
		close(ready)
		done <- entry()
	}()
	<-ready
	return done, nil
}

// Enter binds the calling goroutine as this core and runs entry on it.
func (c *Core) Enter(entry func() error) error {
	if err := c.claim(); err != nil {
		return err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	c.bind(nil)
	return entry()
}

func (c *Core) claim() error {
	if c.CPU >= runtime.NumCPU() {
		return fmt.Errorf("core%d cpu %d of %d: %w", c.ID, c.CPU, runtime.NumCPU(), ErrCoreAbsent)
	}
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("core%d: %w", c.ID, ErrCoreStarted)
	}
	return nil
}

// bind pins the current thread. A refused pin (cgroup cpuset, EPERM) leaves
// the core running unpinned.
func (c *Core) bind(stack *Stack) {
	log := c.Log.ForCore(fmt.Sprintf("core%d", c.ID))
	switch {
	case c.CPU < 0:
		log.Logf("hello from core %d (unpinned)", c.ID)
	case !affinitySupported:
		log.Logf("hello from core %d (cpu %d requested, affinity unsupported)", c.ID, c.CPU)
	default:
		if err := pin(c.CPU); err != nil {
			log.Warnf("pin to cpu %d refused: %v", c.CPU, err)
		} else {
			log.Logf("hello from core %d on cpu %d", c.ID, c.CPU)
		}
	}
	if stack != nil {
		log.Debugf("stack region %d bytes", stack.Size())
	}
}
