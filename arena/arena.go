// arena.go
//
// First-fit heap over a fixed byte region.  Free space is a singly linked
// list of holes sorted by offset and threaded through the region itself:
// every hole starts with a two-word header {size, next}.  Live blocks carry
// no header, so Dealloc must be told the block's size (Block.Len).  A hole
// whose remainder after a request would be too small to hold a header is
// handed out whole; the slack becomes part of the block.
//
// Layout invariants (checked by Check):
//   • every hole and block starts on an 8-byte boundary of the region
//   • hole sizes are multiples of 8 and never below minBlock
//   • holes are sorted, non-overlapping and never adjacent (coalesced)
//   • the sum of hole sizes equals the free counter
//
// No compaction: fragmentation can make ErrOutOfMemory appear while the
// free counter still exceeds the request.
//
// All bookkeeping runs inside a critical.Mutex, so both cores may allocate
// and free concurrently.

package arena

import (
	"errors"
	"fmt"
	"sync/atomic"

	"twincore/constants"
	"twincore/critical"
	"twincore/fault"
	"twincore/utils"
)

const (
	wordSize   = constants.ArenaAlign
	holeHeader = 2 * wordSize
	minBlock   = holeHeader
	nilOff     = ^uintptr(0)
)

var (
	ErrOutOfMemory    = errors.New("arena: out of memory")
	ErrDoubleInit     = errors.New("arena: already initialized")
	ErrUninitialized  = errors.New("arena: used before initialization")
	ErrRegionTooSmall = errors.New("arena: region too small")
	ErrBadAlign       = errors.New("arena: alignment is not a power of two")
	ErrInvalidFree    = errors.New("arena: invalid deallocation")
	ErrCorrupt        = errors.New("arena: free list corrupt")
)

// Stats are cumulative counters since Init.
type Stats struct {
	Allocs   uint64
	Frees    uint64
	Failures uint64
	PeakUsed int
}

// Arena is a fixed-capacity allocator. The zero value must be initialized
// with Init before use.
type Arena struct {
	mu    critical.Mutex
	mem   []byte
	base  uintptr
	head  uintptr
	free  uintptr
	ready uint32
	stats Stats
}

// Init hands the arena its backing region. The usable part starts at the
// first 8-byte aligned address of mem. A second call returns ErrDoubleInit
// and leaves the arena untouched.
func (a *Arena) Init(mem []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if atomic.LoadUint32(&a.ready) != 0 {
		return ErrDoubleInit
	}
	if len(mem) == 0 {
		return ErrRegionTooSmall
	}
	addr := utils.Addr(mem)
	skip := utils.AlignUp(addr, wordSize) - addr
	if uintptr(len(mem)) < skip+minBlock {
		return fmt.Errorf("%w: %d bytes", ErrRegionTooSmall, len(mem))
	}
	n := utils.AlignDown(uintptr(len(mem))-skip, wordSize)

	a.mem = mem[skip : skip+n : skip+n]
	a.base = utils.Addr(a.mem)
	a.setHole(0, n, nilOff)
	a.head = 0
	a.free = n
	a.stats = Stats{}
	atomic.StoreUint32(&a.ready, 1)
	return nil
}

// Ready reports whether Init has completed.
func (a *Arena) Ready() bool {
	return atomic.LoadUint32(&a.ready) != 0
}

// Alloc returns a block of at least size bytes whose address is a multiple
// of align. An align of 0 means the 8-byte default. Calling Alloc before Init
// halts the process.
func (a *Arena) Alloc(size, align uintptr) (Block, error) {
	a.mustBeReady()
	if align == 0 {
		align = wordSize
	}
	if !utils.IsPow2(align) {
		return Block{}, fmt.Errorf("%w: %d", ErrBadAlign, align)
	}
	if align < wordSize {
		align = wordSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if size > uintptr(len(a.mem)) {
		a.stats.Failures++
		return Block{}, fmt.Errorf("%w: size=%d exceeds arena of %d", ErrOutOfMemory, size, len(a.mem))
	}
	size = normalize(size)

	prev, cur := nilOff, a.head
	for cur != nilOff {
		hsize, next := a.holeSize(cur), a.holeNext(cur)

		start := a.alignOff(cur, align)
		if start != cur && start-cur < minBlock {
			// front padding too small to stay a hole
			start = a.alignOff(cur+minBlock, align)
		}
		end, holeEnd := start+size, cur+hsize
		if end <= holeEnd {
			grant := size
			if back := holeEnd - end; back < minBlock {
				grant, end = holeEnd-start, holeEnd
			}
			link := next
			if end < holeEnd {
				a.setHole(end, holeEnd-end, link)
				link = end
			}
			if start > cur {
				a.setHole(cur, start-cur, link)
				link = cur
			}
			if prev == nilOff {
				a.head = link
			} else {
				a.setNext(prev, link)
			}
			a.free -= grant
			a.stats.Allocs++
			if used := len(a.mem) - int(a.free); used > a.stats.PeakUsed {
				a.stats.PeakUsed = used
			}
			return Block{arena: a, off: start, size: grant}, nil
		}
		prev, cur = cur, next
	}

	a.stats.Failures++
	return Block{}, fmt.Errorf("%w: size=%d align=%d free=%d", ErrOutOfMemory, size, align, a.free)
}

// Dealloc returns the block at addr; size is the block's Len. Ranges
// outside the arena, misaligned ranges and ranges overlapping free space
// (double free) halt the process.
func (a *Arena) Dealloc(addr, size uintptr) {
	a.mustBeReady()
	if err := a.dealloc(addr, size); err != nil {
		fault.Halt(err)
	}
}

func (a *Arena) dealloc(addr, size uintptr) error {
	size = normalize(size)
	if addr < a.base || addr-a.base > uintptr(len(a.mem)) || size > uintptr(len(a.mem))-(addr-a.base) {
		return fmt.Errorf("%w: %#x+%d outside arena", ErrInvalidFree, addr, size)
	}
	off := addr - a.base
	if off%wordSize != 0 {
		return fmt.Errorf("%w: offset %d misaligned", ErrInvalidFree, off)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	prev, cur := nilOff, a.head
	for cur != nilOff && cur < off {
		prev, cur = cur, a.holeNext(cur)
	}
	if prev != nilOff && prev+a.holeSize(prev) > off {
		return fmt.Errorf("%w: offset %d overlaps free hole at %d", ErrInvalidFree, off, prev)
	}
	if cur != nilOff && off+size > cur {
		return fmt.Errorf("%w: offset %d+%d overlaps free hole at %d", ErrInvalidFree, off, size, cur)
	}

	hole, next := size, cur
	if cur != nilOff && off+size == cur {
		hole += a.holeSize(cur)
		next = a.holeNext(cur)
	}
	if prev != nilOff && prev+a.holeSize(prev) == off {
		a.setHole(prev, a.holeSize(prev)+hole, next)
	} else {
		a.setHole(off, hole, next)
		if prev == nilOff {
			a.head = off
		} else {
			a.setNext(prev, off)
		}
	}
	a.free += size
	a.stats.Frees++
	return nil
}

// Free returns the number of bytes currently in holes.
func (a *Arena) Free() int {
	a.mustBeReady()
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.free)
}

// Used returns the number of bytes held by live blocks.
func (a *Arena) Used() int {
	a.mustBeReady()
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mem) - int(a.free)
}

// Size is the usable capacity fixed at Init.
func (a *Arena) Size() int {
	a.mustBeReady()
	return len(a.mem)
}

// Stats returns a snapshot of the counters.
func (a *Arena) Stats() Stats {
	a.mustBeReady()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Check walks the free list and verifies the layout invariants.
func (a *Arena) Check() error {
	a.mustBeReady()
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		total, holes uintptr
		prevEnd      uintptr
		first        = true
		limit        = uintptr(len(a.mem))
	)
	for cur := a.head; cur != nilOff; cur = a.holeNext(cur) {
		if cur%wordSize != 0 || cur+holeHeader > limit {
			return fmt.Errorf("%w: hole offset %d", ErrCorrupt, cur)
		}
		size := a.holeSize(cur)
		if size < minBlock || size%wordSize != 0 || size > limit-cur {
			return fmt.Errorf("%w: hole at %d has size %d", ErrCorrupt, cur, size)
		}
		if !first && cur <= prevEnd {
			return fmt.Errorf("%w: hole at %d not after previous end %d", ErrCorrupt, cur, prevEnd)
		}
		if holes++; holes > limit/minBlock {
			return fmt.Errorf("%w: cycle in free list", ErrCorrupt)
		}
		total += size
		prevEnd = cur + size
		first = false
	}
	if total != a.free {
		return fmt.Errorf("%w: holes sum to %d, counter says %d", ErrCorrupt, total, a.free)
	}
	return nil
}

func (a *Arena) mustBeReady() {
	if atomic.LoadUint32(&a.ready) == 0 {
		fault.Halt(ErrUninitialized)
	}
}

func (a *Arena) alignOff(off, align uintptr) uintptr {
	return utils.AlignUp(a.base+off, align) - a.base
}

func (a *Arena) holeSize(off uintptr) uintptr {
	return uintptr(utils.Load64(a.mem[off:]))
}

func (a *Arena) holeNext(off uintptr) uintptr {
	return uintptr(utils.Load64(a.mem[off+wordSize:]))
}

func (a *Arena) setNext(off, next uintptr) {
	utils.Store64(a.mem[off+wordSize:], uint64(next))
}

func (a *Arena) setHole(off, size, next uintptr) {
	utils.Store64(a.mem[off:], uint64(size))
	utils.Store64(a.mem[off+wordSize:], uint64(next))
}

// normalize rounds a request up to the block granularity.
func normalize(size uintptr) uintptr {
	if size < minBlock {
		return minBlock
	}
	return utils.AlignUp(size, wordSize)
}
