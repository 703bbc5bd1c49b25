package executor

import (
	"sync/atomic"
	"time"

	"twincore/debug"
)

// Poll is the outcome of polling a task or an operation.
type Poll uint8

const (
	// Pending means the caller must suspend; a waker has been registered.
	Pending Poll = iota
	// Ready means the task or operation completed.
	Ready
)

// State is a task's position in its lifecycle.
type State uint32

const (
	StatePending State = iota
	StateRunning
	StateSuspended
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Task is a suspendable computation. Poll runs it until its next suspension
// point and must return quickly; returning Pending is only valid after
// arranging for the context's waker to be woken (channel op, Delay).
type Task interface {
	Poll(cx *Context) Poll
}

// TaskFunc adapts a function to Task.
type TaskFunc func(cx *Context) Poll

// Poll calls f(cx).
func (f TaskFunc) Poll(cx *Context) Poll { return f(cx) }

type taskCell struct {
	name    string
	task    Task
	log     *debug.Logger
	state   atomic.Uint32
	woken   atomic.Uint32
	polls   atomic.Uint64
	timerAt time.Time // executor thread only
}

// Waker resumes one suspended task. It is a comparable value, safe to copy
// and to call from any core.
type Waker struct {
	exec *Executor
	cell *taskCell
}

// Wake marks the task ready and kicks its executor.
func (w Waker) Wake() {
	if w.cell == nil {
		return
	}
	w.cell.woken.Store(1)
	w.exec.kick()
}

// Context is handed to Task.Poll.
type Context struct {
	exec *Executor
	cell *taskCell
}

// Waker returns the waker of the task being polled.
func (cx *Context) Waker() Waker { return Waker{exec: cx.exec, cell: cx.cell} }

// Now reads the executor's clock.
func (cx *Context) Now() time.Time { return cx.exec.clock.Now() }

// Name is the task's spawn name.
func (cx *Context) Name() string { return cx.cell.name }

// Executor returns the executor driving the task.
func (cx *Context) Executor() *Executor { return cx.exec }

// Logger returns a logger tagged with the core and task.
func (cx *Context) Logger() *debug.Logger { return cx.cell.log }

// wakeAt arms a timer for the current task.
func (cx *Context) wakeAt(deadline time.Time) {
	if cx.cell.timerAt.Equal(deadline) {
		return
	}
	cx.cell.timerAt = deadline
	cx.exec.timers.push(deadline, cx.cell)
}
