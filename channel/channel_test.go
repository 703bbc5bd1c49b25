package channel

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincore/debug"
	"twincore/executor"
)

const waitFor = 2 * time.Second

func newCore(name string, opts ...executor.Option) *executor.Executor {
	return executor.New(name, append([]executor.Option{
		executor.WithLogger(debug.Nop()),
		executor.WithSpinBudget(16),
	}, opts...)...)
}

// run drives e on a locked OS thread until the test ends.
func run(t *testing.T, e *executor.Executor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("%s: %v", e.Name(), err)
			}
		case <-time.After(waitFor):
			t.Errorf("%s did not stop", e.Name())
		}
	})
}

// sender sends 0..n-1 in order.
func sender(ch *Channel[int], n int, sent *atomic.Int32) executor.Task {
	var (
		op   *SendOp[int]
		next int
	)
	return executor.TaskFunc(func(cx *executor.Context) executor.Poll {
		for next < n {
			if op == nil {
				op = ch.Send(next)
			}
			if op.Poll(cx) == executor.Pending {
				return executor.Pending
			}
			op = nil
			next++
			sent.Store(int32(next))
		}
		return executor.Ready
	})
}

// receiver collects n values into out and raises done.
func receiver(ch *Channel[int], n int, out *[]int, done *atomic.Bool) executor.Task {
	var op *ReceiveOp[int]
	return executor.TaskFunc(func(cx *executor.Context) executor.Poll {
		for len(*out) < n {
			if op == nil {
				op = ch.Receive()
			}
			if op.Poll(cx) == executor.Pending {
				return executor.Pending
			}
			*out = append(*out, op.Value())
			op = nil
		}
		done.Store(true)
		return executor.Ready
	})
}

func TestTrySendAndReceive(t *testing.T) {
	ch := New[string](2)
	assert.Equal(t, 2, ch.Cap())

	_, err := ch.TryReceive()
	require.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, ch.TrySend("a"))
	require.NoError(t, ch.TrySend("b"))
	require.ErrorIs(t, ch.TrySend("c"), ErrFull)
	assert.Equal(t, 2, ch.Len())

	v, err := ch.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	v, err = ch.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}

func TestWaiterRegistrationIsDeduplicated(t *testing.T) {
	ch := New[int](1)
	var w executor.Waker

	_, ok := ch.PollReceive(w)
	require.False(t, ok)
	_, ok = ch.PollReceive(w)
	require.False(t, ok)
	assert.Len(t, ch.receivers, 1)
	assert.Equal(t, int32(1), ch.nRecv.Load())

	require.NoError(t, ch.TrySend(1))
	assert.Empty(t, ch.receivers)
	assert.Zero(t, ch.nRecv.Load())
}

func TestPollSendRegistersWhenFull(t *testing.T) {
	ch := New[int](1)
	var w executor.Waker
	require.True(t, ch.PollSend(w, 1))
	require.False(t, ch.PollSend(w, 2))
	assert.Equal(t, int32(1), ch.nSenders.Load())

	v, ok := ch.PollReceive(w)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Zero(t, ch.nSenders.Load())
	require.True(t, ch.PollSend(w, 2))
}

// TestFIFOAcrossCores pushes N values from one executor to another through
// a channel of each tested capacity; the receive order must equal the send
// order.
func TestFIFOAcrossCores(t *testing.T) {
	const n = 2000
	for _, capacity := range []int{1, 3, 8} {
		ch := New[int](capacity)
		a, b := newCore("core0"), newCore("core1")

		var (
			sent atomic.Int32
			done atomic.Bool
			got  []int
		)
		require.NoError(t, a.Spawn("producer", sender(ch, n, &sent)))
		require.NoError(t, b.Spawn("consumer", receiver(ch, n, &got, &done)))
		run(t, b)
		run(t, a)

		require.Eventually(t, done.Load, 5*time.Second, time.Millisecond, "capacity %d", capacity)
		require.Len(t, got, n)
		for i, v := range got {
			if v != i {
				t.Fatalf("capacity %d: got %d at %d", capacity, v, i)
			}
		}
	}
}

// TestCapacityOneBackpressure checks that a second send blocks until the
// first value is received, and that the suspension is visible on the clock.
func TestCapacityOneBackpressure(t *testing.T) {
	clk := executor.NewManualClock(time.Unix(0, 0))
	ch := New[int](1)
	a := newCore("core0", executor.WithClock(clk))
	b := newCore("core1", executor.WithClock(clk))

	var (
		first, second atomic.Int64
		step          int
		op            *SendOp[int]
	)
	require.NoError(t, a.Spawn("producer", executor.TaskFunc(func(cx *executor.Context) executor.Poll {
		for step < 2 {
			if op == nil {
				op = ch.Send(step)
			}
			if op.Poll(cx) == executor.Pending {
				return executor.Pending
			}
			op = nil
			if step == 0 {
				first.Store(cx.Now().UnixNano())
			} else {
				second.Store(cx.Now().UnixNano())
			}
			step++
		}
		return executor.Ready
	})))

	delay := executor.NewDelay(50 * time.Millisecond)
	var (
		got  []int
		done atomic.Bool
		recv = receiver(ch, 2, &got, &done)
	)
	require.NoError(t, b.Spawn("consumer", executor.TaskFunc(func(cx *executor.Context) executor.Poll {
		if len(got) == 0 && delay.Poll(cx) == executor.Pending {
			return executor.Pending
		}
		return recv.Poll(cx)
	})))
	run(t, a)
	run(t, b)

	suspended := func(e *executor.Executor, name string) func() bool {
		return func() bool {
			st, _ := e.State(name)
			return st == executor.StateSuspended
		}
	}
	require.Eventually(t, suspended(a, "producer"), waitFor, time.Millisecond)
	require.Eventually(t, suspended(b, "consumer"), waitFor, time.Millisecond)
	assert.Equal(t, 1, ch.Len())
	assert.Zero(t, second.Load(), "second send completed while the slot was occupied")

	clk.Advance(50 * time.Millisecond)
	require.Eventually(t, done.Load, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return second.Load() != 0 }, waitFor, time.Millisecond)

	elapsed := time.Duration(second.Load() - first.Load())
	assert.Positive(t, elapsed)
	assert.Equal(t, 50*time.Millisecond, elapsed)
	assert.Equal(t, []int{0, 1}, got)
}

// TestReceiverResumesAfterRemoteSend parks a receiver on one core and sends
// from the other; the receiver must complete without any further prompting.
func TestReceiverResumesAfterRemoteSend(t *testing.T) {
	ch := New[int](1)
	b := newCore("core1")
	var (
		got  []int
		done atomic.Bool
	)
	require.NoError(t, b.Spawn("consumer", receiver(ch, 1, &got, &done)))
	run(t, b)
	require.Eventually(t, func() bool { return b.Stats().Parks > 0 }, waitFor, time.Millisecond)
	require.False(t, done.Load())

	a := newCore("core0")
	var sent atomic.Int32
	require.NoError(t, a.Spawn("producer", sender(ch, 1, &sent)))
	run(t, a)

	require.Eventually(t, done.Load, waitFor, time.Millisecond)
	assert.Equal(t, []int{0}, got)
}
