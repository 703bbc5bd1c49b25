package app

import (
	"sync/atomic"

	"twincore/arena"
	"twincore/channel"
	"twincore/executor"
	"twincore/sink"
)

// Consumer is the core 1 task and the only owner of the output sink. On
// SinkOn it drives the sink high and runs a filtered-copy churn; on SinkOff
// it drives the sink low.
type Consumer struct {
	Heap *arena.Arena
	In   *channel.Channel[Message]
	Sink sink.Output
	// Limit bounds the number of messages handled; 0 runs forever.
	Limit int

	started bool
	recv    *channel.ReceiveOp[Message]
	handled atomic.Int64
}

// Spawn registers the consumer on e.
func (c *Consumer) Spawn(e *executor.Executor) error {
	return e.Spawn("consumer", c)
}

// Handled is the number of messages processed so far.
func (c *Consumer) Handled() int { return int(c.handled.Load()) }

// Poll handles queued messages until the channel is empty.
func (c *Consumer) Poll(cx *executor.Context) executor.Poll {
	log := cx.Logger()
	if !c.started {
		c.started = true
		log.Logf("hello from %s", cx.Executor().Name())
		churn(c.Heap, log, heapCategory(cx.Name()), 100)
	}
	for c.Limit == 0 || c.Handled() < c.Limit {
		if c.recv == nil {
			c.recv = c.In.Receive()
		}
		if c.recv.Poll(cx) == executor.Pending {
			return executor.Pending
		}
		msg := c.recv.Value()
		c.recv = nil

		switch msg {
		case SinkOn:
			c.Sink.SetHigh()
			log.Throttled(heapCategory(cx.Name()), "heap free = %d bytes", c.Heap.Free())
			filterOdd(c.Heap, log)
		case SinkOff:
			c.Sink.SetLow()
		default:
			log.Warnf("unknown message %d", uint8(msg))
		}
		c.handled.Add(1)
	}
	log.DropMessage("CONSUMER", "limit reached")
	return executor.Ready
}
