package executor

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincore/control"
	"twincore/debug"
	"twincore/fault"
)

// ============================================================================
// HELPERS
// ============================================================================

const waitFor = 2 * time.Second

// start runs e on its own locked OS thread and returns a stop function that
// cancels it and returns Run's error.
func start(t *testing.T, e *Executor) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- e.Run(ctx)
	}()
	t.Cleanup(cancel)
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(waitFor):
			t.Fatal("executor did not return after cancel")
			return nil
		}
	}
}

func quiet(name string, opts ...Option) *Executor {
	return New(name, append([]Option{WithLogger(debug.Nop()), WithSpinBudget(8)}, opts...)...)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

func TestTaskRunsToCompletion(t *testing.T) {
	e := quiet("core0")
	var runs atomic.Int32
	require.NoError(t, e.Spawn("once", TaskFunc(func(*Context) Poll {
		runs.Add(1)
		return Ready
	})))
	stop := start(t, e)

	require.Eventually(t, func() bool { return e.Stats().Completed == 1 }, waitFor, time.Millisecond)
	st, ok := e.State("once")
	require.True(t, ok)
	assert.Equal(t, StateCompleted, st)

	// an idle executor with only completed tasks stays in Run
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	require.ErrorIs(t, stop(), context.Canceled)
}

func TestSuspendAndWake(t *testing.T) {
	e := quiet("core0")
	var (
		waker   atomic.Pointer[Waker]
		release atomic.Bool
	)
	require.NoError(t, e.Spawn("waiter", TaskFunc(func(cx *Context) Poll {
		if release.Load() {
			return Ready
		}
		w := cx.Waker()
		waker.Store(&w)
		return Pending
	})))
	stop := start(t, e)

	require.Eventually(t, func() bool {
		st, _ := e.State("waiter")
		return st == StateSuspended && waker.Load() != nil
	}, waitFor, time.Millisecond)

	release.Store(true)
	waker.Load().Wake()
	require.Eventually(t, func() bool {
		st, _ := e.State("waiter")
		return st == StateCompleted
	}, waitFor, time.Millisecond)
	require.NoError(t, ignoreCanceled(stop()))
}

func TestSpawnAfterStartIsRejected(t *testing.T) {
	e := quiet("core0")
	stop := start(t, e)
	require.Eventually(t, func() bool { return e.Stats().Passes > 0 }, waitFor, time.Millisecond)

	err := e.Spawn("late", TaskFunc(func(*Context) Poll { return Ready }))
	require.ErrorIs(t, err, ErrStarted)
	require.ErrorIs(t, e.Run(context.Background()), ErrStarted)
	require.NoError(t, ignoreCanceled(stop()))
}

func TestSpawnNilTask(t *testing.T) {
	require.ErrorIs(t, quiet("core0").Spawn("nil", nil), ErrNilTask)
}

func TestUnknownTaskState(t *testing.T) {
	_, ok := quiet("core0").State("missing")
	assert.False(t, ok)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "suspended", StateSuspended.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestEmptyExecutorParksUntilCancelled(t *testing.T) {
	e := quiet("core1")
	stop := start(t, e)
	require.Eventually(t, func() bool { return e.Stats().Parks > 0 }, waitFor, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)
}

func TestControlShutdownStopsRun(t *testing.T) {
	ctl := control.New(0)
	e := quiet("core0", WithControl(ctl))
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	require.Eventually(t, func() bool { return e.Stats().Parks > 0 }, waitFor, time.Millisecond)

	ctl.Shutdown()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrStopped)
	case <-time.After(waitFor):
		t.Fatal("Run ignored shutdown")
	}
}

func TestStackGuardHalts(t *testing.T) {
	errSmash := errors.New("canary smashed")
	e := quiet("core1", WithStackGuard(func() error { return errSmash }))
	done := make(chan error, 1)
	go func() {
		var err error
		defer func() { done <- err }()
		defer fault.Recover(&err)
		err = e.Run(context.Background())
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, errSmash)
		var f *fault.Fault
		require.ErrorAs(t, err, &f)
	case <-time.After(waitFor):
		t.Fatal("guard failure did not halt the executor")
	}
}

// ============================================================================
// DELAYS
// ============================================================================

func TestDelayWithManualClock(t *testing.T) {
	clk := NewManualClock(time.Unix(1000, 0))
	e := quiet("core0", WithClock(clk))
	d := NewDelay(100 * time.Millisecond)
	var fired atomic.Int32
	require.NoError(t, e.Spawn("sleeper", TaskFunc(func(cx *Context) Poll {
		if d.Poll(cx) == Pending {
			return Pending
		}
		fired.Add(1)
		return Ready
	})))
	stop := start(t, e)

	require.Eventually(t, func() bool {
		st, _ := e.State("sleeper")
		return st == StateSuspended
	}, waitFor, time.Millisecond)

	clk.Advance(50 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, fired.Load(), "delay fired early")

	clk.Advance(50 * time.Millisecond)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, waitFor, time.Millisecond)
	require.NoError(t, ignoreCanceled(stop()))
}

func TestDelayRearmsForPeriodicLoops(t *testing.T) {
	clk := NewManualClock(time.Unix(0, 0))
	e := quiet("core0", WithClock(clk))
	d := NewDelay(time.Second)
	var ticks atomic.Int32
	require.NoError(t, e.Spawn("ticker", TaskFunc(func(cx *Context) Poll {
		for d.Poll(cx) == Ready {
			ticks.Add(1)
		}
		return Pending
	})))
	stop := start(t, e)

	for i := int32(1); i <= 3; i++ {
		require.Eventually(t, func() bool {
			st, _ := e.State("ticker")
			return st == StateSuspended
		}, waitFor, time.Millisecond)
		clk.Advance(time.Second)
		want := i
		require.Eventually(t, func() bool { return ticks.Load() == want }, waitFor, time.Millisecond)
	}
	require.NoError(t, ignoreCanceled(stop()))
}

func TestDelayRealClockElapses(t *testing.T) {
	e := quiet("core0")
	d := NewDelay(20 * time.Millisecond)
	var (
		begin   atomic.Int64
		elapsed atomic.Int64
	)
	require.NoError(t, e.Spawn("sleeper", TaskFunc(func(cx *Context) Poll {
		if begin.Load() == 0 {
			begin.Store(cx.Now().UnixNano())
		}
		if d.Poll(cx) == Pending {
			return Pending
		}
		elapsed.Store(cx.Now().UnixNano() - begin.Load())
		return Ready
	})))
	stop := start(t, e)
	require.Eventually(t, func() bool { return elapsed.Load() != 0 }, waitFor, time.Millisecond)
	assert.GreaterOrEqual(t, time.Duration(elapsed.Load()), 20*time.Millisecond)
	require.NoError(t, ignoreCanceled(stop()))
}

// ============================================================================
// CROSS-CORE WAKE
// ============================================================================

// TestCrossCoreWakeLiveness parks a task on core1 and wakes it from a task on
// core0; the waiter must resume on its executor's next pass.
func TestCrossCoreWakeLiveness(t *testing.T) {
	core0, core1 := quiet("core0"), quiet("core1")
	var (
		waker   atomic.Pointer[Waker]
		signal  atomic.Bool
		resumed atomic.Bool
	)
	require.NoError(t, core1.Spawn("waiter", TaskFunc(func(cx *Context) Poll {
		if signal.Load() {
			resumed.Store(true)
			return Ready
		}
		w := cx.Waker()
		waker.Store(&w)
		return Pending
	})))
	require.NoError(t, core0.Spawn("signaller", TaskFunc(func(cx *Context) Poll {
		w := waker.Load()
		if w == nil {
			// retry on the next pass
			cx.Waker().Wake()
			return Pending
		}
		signal.Store(true)
		w.Wake()
		return Ready
	})))
	stop1 := start(t, core1)
	require.Eventually(t, func() bool { return core1.Stats().Parks > 0 }, waitFor, time.Millisecond)
	stop0 := start(t, core0)

	require.Eventually(t, resumed.Load, waitFor, time.Millisecond)
	require.NoError(t, ignoreCanceled(stop0()))
	require.NoError(t, ignoreCanceled(stop1()))
}

func TestWakeOnZeroWakerIsNoop(t *testing.T) {
	var w Waker
	w.Wake()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
