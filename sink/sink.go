// sink.go
//
// Digital output capability driven by the consumer core.  The runtime never
// sees hardware: Pin models one GPIO line and reports each edge through the
// log sink, Recorder keeps the level history for assertions, Tee fans one
// output out to several.  Set operations are infallible at this layer.

package sink

import (
	"sync"
	"sync/atomic"

	"twincore/debug"
)

// Output is a two-level digital sink.
type Output interface {
	SetHigh()
	SetLow()
}

// Level is the state of an output line.
type Level uint32

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Pin is a logged output line. Only edges are logged; repeated sets of the
// current level are counted but silent.
type Pin struct {
	num   int
	log   debug.Sink
	level atomic.Uint32
	edges atomic.Uint64
	sets  atomic.Uint64
}

var _ Output = (*Pin)(nil)

// NewPin returns a low pin numbered num. log may be nil.
func NewPin(num int, log debug.Sink) *Pin {
	return &Pin{num: num, log: log}
}

// SetHigh drives the line high.
func (p *Pin) SetHigh() { p.set(High) }

// SetLow drives the line low.
func (p *Pin) SetLow() { p.set(Low) }

func (p *Pin) set(l Level) {
	p.sets.Add(1)
	if Level(p.level.Swap(uint32(l))) == l {
		return
	}
	p.edges.Add(1)
	if p.log != nil {
		p.log.Logf("gpio%d -> %s", p.num, l)
	}
}

// Level is the current line level.
func (p *Pin) Level() Level { return Level(p.level.Load()) }

// Num is the pin number.
func (p *Pin) Num() int { return p.num }

// Edges counts level changes; Sets counts every call.
func (p *Pin) Edges() uint64 { return p.edges.Load() }
func (p *Pin) Sets() uint64  { return p.sets.Load() }

// Recorder remembers every level written to it, in order.
type Recorder struct {
	mu     sync.Mutex
	levels []Level
}

var _ Output = (*Recorder)(nil)

func (r *Recorder) SetHigh() { r.add(High) }
func (r *Recorder) SetLow()  { r.add(Low) }

func (r *Recorder) add(l Level) {
	r.mu.Lock()
	r.levels = append(r.levels, l)
	r.mu.Unlock()
}

// Levels returns a copy of the history.
func (r *Recorder) Levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Level(nil), r.levels...)
}

// Len is the number of recorded sets.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.levels)
}

type tee []Output

// Tee returns an Output forwarding every set to outs in order.
func Tee(outs ...Output) Output { return tee(outs) }

func (t tee) SetHigh() {
	for _, o := range t {
		o.SetHigh()
	}
}

func (t tee) SetLow() {
	for _, o := range t {
		o.SetLow()
	}
}
