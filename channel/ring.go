// ring.go
//
// Lock-free bounded MPMC ring.  Every slot carries a sequence stamp so Push
// and Pop claim positions with a single CAS on tail/head and never touch a
// slot the other side has not released.  Producer and consumer cursors sit
// on separate cache-lines to avoid false sharing between the two cores.
//
// Stamps are doubled so that any capacity works, including 1:
//   • 2·pos     – slot empty, ready for the producer claiming pos
//   • 2·pos + 1 – slot occupied by the value written at pos
//   • 2·(pos+n) – slot released by the consumer of pos, ready for the next lap
//
// With single stamps the "occupied at pos" and "empty for pos+1" values
// collide when n == 1.

package channel

import "sync/atomic"

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Ring is a fixed-capacity FIFO safe for any number of producers and
// consumers. Push and Pop never block.
type Ring[T any] struct {
	_    [64]byte
	tail atomic.Uint64
	//lint:ignore U1000 padding keeps producer and consumer cursors apart
	_pad1 [56]byte
	head  atomic.Uint64
	//lint:ignore U1000 padding keeps cursors away from read-mostly metadata
	_pad2 [56]byte
	n     uint64
	buf   []slot[T]
}

// NewRing allocates a ring of capacity slots. capacity must be at least 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("channel: capacity must be >= 1")
	}
	r := &Ring[T]{
		n:   uint64(capacity),
		buf: make([]slot[T], capacity),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(2 * uint64(i))
	}
	return r
}

// Push enqueues v and reports false if the ring is full.
func (r *Ring[T]) Push(v T) bool {
	for {
		pos := r.tail.Load()
		s := &r.buf[pos%r.n]
		seq := s.seq.Load()
		switch {
		case seq == 2*pos:
			if r.tail.CompareAndSwap(pos, pos+1) {
				s.val = v
				s.seq.Store(2*pos + 1)
				return true
			}
		case seq < 2*pos:
			return false // previous lap not consumed yet
		}
		// another producer moved tail; reload
	}
}

// Pop dequeues the oldest value and reports false if the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	for {
		pos := r.head.Load()
		s := &r.buf[pos%r.n]
		seq := s.seq.Load()
		switch {
		case seq == 2*pos+1:
			if r.head.CompareAndSwap(pos, pos+1) {
				v := s.val
				s.val = zero
				s.seq.Store(2 * (pos + r.n))
				return v, true
			}
		case seq < 2*pos+1:
			return zero, false // not published yet
		}
	}
}

// Len is a racy snapshot of the number of queued values.
func (r *Ring[T]) Len() int {
	for {
		head := r.head.Load()
		tail := r.tail.Load()
		if r.head.Load() != head {
			continue
		}
		if tail <= head {
			return 0
		}
		if d := tail - head; d < r.n {
			return int(d)
		}
		return int(r.n)
	}
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return int(r.n) }
