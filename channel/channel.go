// channel.go
//
// Bounded cross-core channel.  Values travel through a Ring; tasks that find
// it full (senders) or empty (receivers) register their executor waker and
// suspend.  Registration happens under a critical.Mutex and is followed by
// one retry of the operation, while the opposite side checks an atomic
// waiter count after every successful Push/Pop.  One of the two always sees
// the other, so a suspended task is never left without a wake.

package channel

import (
	"errors"
	"sync/atomic"

	"twincore/critical"
	"twincore/executor"
)

var (
	ErrFull  = errors.New("channel: full")
	ErrEmpty = errors.New("channel: empty")
)

// Channel is a capacity-bounded FIFO shared by tasks on any cores.
type Channel[T any] struct {
	ring *Ring[T]

	mu        critical.Mutex
	senders   []executor.Waker
	receivers []executor.Waker
	nSenders  atomic.Int32
	nRecv     atomic.Int32
}

// New returns a channel of capacity slots; it panics if capacity < 1.
func New[T any](capacity int) *Channel[T] {
	return &Channel[T]{ring: NewRing[T](capacity)}
}

// TrySend enqueues v or returns ErrFull.
func (c *Channel[T]) TrySend(v T) error {
	if !c.ring.Push(v) {
		return ErrFull
	}
	c.wakeAll(&c.receivers, &c.nRecv)
	return nil
}

// TryReceive dequeues the oldest value or returns ErrEmpty.
func (c *Channel[T]) TryReceive() (T, error) {
	v, ok := c.ring.Pop()
	if !ok {
		return v, ErrEmpty
	}
	c.wakeAll(&c.senders, &c.nSenders)
	return v, nil
}

// PollSend enqueues v if a slot is free. Otherwise w is registered to be
// woken by the next receive and PollSend returns false.
func (c *Channel[T]) PollSend(w executor.Waker, v T) bool {
	if c.TrySend(v) == nil {
		return true
	}
	c.register(&c.senders, &c.nSenders, w)
	return c.TrySend(v) == nil
}

// PollReceive dequeues a value if one is queued. Otherwise w is registered
// to be woken by the next send.
func (c *Channel[T]) PollReceive(w executor.Waker) (T, bool) {
	if v, err := c.TryReceive(); err == nil {
		return v, true
	}
	c.register(&c.receivers, &c.nRecv, w)
	v, err := c.TryReceive()
	return v, err == nil
}

// Send returns an operation that completes once v is enqueued.
func (c *Channel[T]) Send(v T) *SendOp[T] {
	return &SendOp[T]{ch: c, v: v}
}

// Receive returns an operation that completes with the oldest value.
func (c *Channel[T]) Receive() *ReceiveOp[T] {
	return &ReceiveOp[T]{ch: c}
}

// Len is a snapshot of the queued count.
func (c *Channel[T]) Len() int { return c.ring.Len() }

// Cap is the fixed capacity.
func (c *Channel[T]) Cap() int { return c.ring.Cap() }

func (c *Channel[T]) register(list *[]executor.Waker, n *atomic.Int32, w executor.Waker) {
	c.mu.Lock()
	for _, have := range *list {
		if have == w {
			c.mu.Unlock()
			return
		}
	}
	*list = append(*list, w)
	n.Add(1)
	c.mu.Unlock()
}

func (c *Channel[T]) wakeAll(list *[]executor.Waker, n *atomic.Int32) {
	if n.Load() == 0 {
		return
	}
	c.mu.With(func() {
		for i, w := range *list {
			w.Wake()
			(*list)[i] = executor.Waker{}
		}
		n.Add(-int32(len(*list)))
		*list = (*list)[:0]
	})
}

// SendOp is a pending send; poll it from a task until Ready.
type SendOp[T any] struct {
	ch   *Channel[T]
	v    T
	done bool
}

// Poll tries the send, registering the task's waker if the channel is full.
func (op *SendOp[T]) Poll(cx *executor.Context) executor.Poll {
	if op.done {
		return executor.Ready
	}
	if op.ch.PollSend(cx.Waker(), op.v) {
		op.done = true
		return executor.Ready
	}
	return executor.Pending
}

// ReceiveOp is a pending receive; poll it from a task until Ready, then read
// Value.
type ReceiveOp[T any] struct {
	ch   *Channel[T]
	v    T
	done bool
}

// Poll tries the receive, registering the task's waker if the channel is
// empty.
func (op *ReceiveOp[T]) Poll(cx *executor.Context) executor.Poll {
	if op.done {
		return executor.Ready
	}
	if v, ok := op.ch.PollReceive(cx.Waker()); ok {
		op.v, op.done = v, true
		return executor.Ready
	}
	return executor.Pending
}

// Value returns the received value once Poll returned Ready.
func (op *ReceiveOp[T]) Value() T { return op.v }
