// executor.go
//
// Single-threaded cooperative executor.  One instance is driven by exactly
// one core: Run polls every woken task in registration order, never
// preempts a running Poll, and parks the thread when nothing is ready.
//
// Idle discipline (mirrors the pinned SPSC consumer):
//   • after a productive pass, spin up to spinBudget empty passes with
//     critical.Relax between them
//   • keep spinning while the shared control hot flag is up
//   • otherwise park on the wake primitive until kicked or until the nearest
//     timer deadline
//
// Wake protocol: Waker.Wake stores the task's woken flag, then kicked, then
// signals the primitive if the thread is parked.  Run clears kicked before
// scanning and re-checks it after publishing parked, so a wake racing with
// the decision to park is never lost.

package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"twincore/constants"
	"twincore/control"
	"twincore/critical"
	"twincore/debug"
	"twincore/fault"
)

var (
	ErrStarted = errors.New("executor: already started")
	ErrStopped = errors.New("executor: stopped by control")
	ErrNilTask = errors.New("executor: nil task")
)

// Option configures an Executor.
type Option func(*Executor)

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(e *Executor) { e.clock = c } }

// WithLogger sets the logger; records carry a core=<name> field.
func WithLogger(l *debug.Logger) Option { return func(e *Executor) { e.log = l } }

// WithControl attaches shared hot/stop flags.
func WithControl(c *control.Control) Option { return func(e *Executor) { e.ctl = c } }

// WithSpinBudget sets the number of empty passes spun before parking.
func WithSpinBudget(n int) Option { return func(e *Executor) { e.spinBudget = n } }

// WithStackGuard installs a check run on every idle pass; an error halts
// the core.
func WithStackGuard(check func() error) Option { return func(e *Executor) { e.guard = check } }

// Stats are cumulative counters, readable from any goroutine.
type Stats struct {
	Tasks     int
	Completed int
	Passes    uint64
	Polls     uint64
	Parks     uint64
}

// Executor drives a fixed set of tasks on one core.
type Executor struct {
	name       string
	clock      Clock
	log        *debug.Logger
	ctl        *control.Control
	spinBudget int
	guard      func() error

	tasks  []*taskCell
	timers timerQueue
	wake   *wakeup

	started atomic.Bool
	kicked  atomic.Uint32
	parked  atomic.Uint32

	passes    atomic.Uint64
	polls     atomic.Uint64
	parks     atomic.Uint64
	completed atomic.Int32
}

// New returns an executor named after the core it will run on.
func New(name string, opts ...Option) *Executor {
	e := &Executor{
		name:       name,
		clock:      SystemClock{},
		spinBudget: constants.SpinBudget,
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = debug.Default()
	}
	e.log = e.log.ForCore(name)
	return e
}

// Name is the core name given to New.
func (e *Executor) Name() string { return e.name }

// Spawn registers t. Tasks can only be added before Run.
func (e *Executor) Spawn(name string, t Task) error {
	if t == nil {
		return ErrNilTask
	}
	if e.started.Load() {
		return fmt.Errorf("spawn %q on %s: %w", name, e.name, ErrStarted)
	}
	c := &taskCell{name: name, task: t, log: e.log.ForTask(name)}
	c.woken.Store(1)
	e.tasks = append(e.tasks, c)
	return nil
}

// Run drives the task set until ctx is done or the control stop flag is
// raised. With a context that is never cancelled it never returns. A second
// call returns ErrStarted.
func (e *Executor) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	w, err := newWakeup()
	if err != nil {
		return fmt.Errorf("executor %s: wake primitive: %w", e.name, err)
	}
	e.wake = w
	defer func() { _ = w.close() }()

	stop := context.AfterFunc(ctx, e.kick)
	defer stop()
	e.ctl.OnStop(e.kick)
	if s, ok := e.clock.(subscriber); ok {
		s.subscribe(e.kick)
	}

	e.log.Logf("executor running %d task(s)", len(e.tasks))
	spins := 0
	for {
		if e.ctl.Stopped() {
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		e.kicked.Store(0)
		e.timers.fire(e.clock.Now())
		if e.pass() {
			e.ctl.SignalActivity()
			spins = 0
			continue
		}
		spins = e.idle(spins)
	}
}

// pass polls every woken task once and reports whether any ran.
func (e *Executor) pass() bool {
	e.passes.Add(1)
	ran := false
	for _, c := range e.tasks {
		if c.woken.Load() == 0 {
			continue
		}
		c.woken.Store(0)
		if State(c.state.Load()) == StateCompleted {
			continue
		}
		ran = true
		e.poll(c)
	}
	return ran
}

func (e *Executor) poll(c *taskCell) {
	c.state.Store(uint32(StateRunning))
	c.polls.Add(1)
	e.polls.Add(1)
	cx := Context{exec: e, cell: c}
	if c.task.Poll(&cx) == Ready {
		c.state.Store(uint32(StateCompleted))
		e.completed.Add(1)
		c.log.DropMessage("TASK", "completed")
		return
	}
	c.state.Store(uint32(StateSuspended))
}

// idle spins or parks once and returns the updated spin count.
func (e *Executor) idle(spins int) int {
	if e.guard != nil {
		if err := e.guard(); err != nil {
			fault.Halt(fmt.Errorf("executor %s: %w", e.name, err))
		}
	}
	if e.kicked.Load() != 0 {
		return spins
	}
	e.ctl.PollCooldown()
	if spins < e.spinBudget || e.ctl.Hot() {
		critical.Relax()
		return spins + 1
	}

	timeout := time.Duration(-1)
	if deadline, ok := e.timers.next(); ok {
		if timeout = deadline.Sub(e.clock.Now()); timeout <= 0 {
			return spins
		}
	}
	e.parked.Store(1)
	if e.kicked.Load() == 0 {
		e.parks.Add(1)
		e.wake.wait(timeout)
	}
	e.parked.Store(0)
	return spins
}

// kick makes a parked Run re-scan its tasks. Safe from any goroutine.
func (e *Executor) kick() {
	e.kicked.Store(1)
	if e.parked.Load() != 0 {
		e.wake.signal()
	}
}

// State reports the lifecycle state of the named task.
func (e *Executor) State(name string) (State, bool) {
	for _, c := range e.tasks {
		if c.name == name {
			return State(c.state.Load()), true
		}
	}
	return 0, false
}

// Stats returns a snapshot of the counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Tasks:     len(e.tasks),
		Completed: int(e.completed.Load()),
		Passes:    e.passes.Load(),
		Polls:     e.polls.Load(),
		Parks:     e.parks.Load(),
	}
}
