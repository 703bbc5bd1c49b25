// producer.go
//
// Core 0 task.  After a one-off allocator churn it loops forever:
//
//	send SinkOn → send SinkOff → wait Interval → churn → …
//
// Each arrow that cannot proceed immediately is a suspension point; the
// state field records where the next Poll resumes.

package app

import (
	"sync/atomic"
	"time"

	"twincore/arena"
	"twincore/channel"
	"twincore/executor"
)

type producerState uint8

const (
	produceStart producerState = iota
	produceOn
	produceOff
	produceWait
	produceDone
)

// Producer drives the message stream.
type Producer struct {
	Heap     *arena.Arena
	Out      *channel.Channel[Message]
	Interval time.Duration
	// Cycles bounds the number of On/Off pairs; 0 runs forever.
	Cycles int

	state producerState
	send  *channel.SendOp[Message]
	delay executor.Delay
	cycle int
	done  atomic.Bool
}

// Spawn registers the producer on e.
func (p *Producer) Spawn(e *executor.Executor) error {
	p.delay = executor.NewDelay(p.Interval)
	return e.Spawn("producer", p)
}

// Done reports whether a bounded producer finished its cycles.
func (p *Producer) Done() bool { return p.done.Load() }

// Poll advances the producer to its next suspension point.
func (p *Producer) Poll(cx *executor.Context) executor.Poll {
	log := cx.Logger()
	for {
		switch p.state {
		case produceStart:
			log.Logf("hello from %s", cx.Executor().Name())
			churn(p.Heap, log, heapCategory(cx.Name()), 100)
			p.state = produceOn

		case produceOn, produceOff:
			if p.send == nil {
				msg := SinkOn
				if p.state == produceOff {
					msg = SinkOff
				}
				p.send = p.Out.Send(msg)
			}
			if p.send.Poll(cx) == executor.Pending {
				return executor.Pending
			}
			p.send = nil
			p.state++

		case produceWait:
			if p.delay.Poll(cx) == executor.Pending {
				return executor.Pending
			}
			p.cycle++
			if p.Cycles > 0 && p.cycle >= p.Cycles {
				p.state = produceDone
				continue
			}
			churn(p.Heap, log, heapCategory(cx.Name()), uint64(p.cycle)*100)
			p.state = produceOn

		default:
			p.done.Store(true)
			log.DropMessage("PRODUCER", "cycles complete")
			return executor.Ready
		}
	}
}
