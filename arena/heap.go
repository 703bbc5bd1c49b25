package arena

import (
	"unsafe"

	"twincore/constants"
)

// Heap is the process-wide arena shared by both cores.
var Heap Arena

// staticMem is the region Heap is normally initialized with. Declared as
// words so the region starts 8-byte aligned and no byte is lost to Init's
// alignment skip.
var staticMem [constants.ArenaSize / wordSize]uint64

// StaticRegion returns the statically reserved backing store for Heap.
func StaticRegion() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&staticMem[0])), len(staticMem)*wordSize)
}

// Init initializes Heap over mem.
func Init(mem []byte) error { return Heap.Init(mem) }

// Alloc allocates from Heap.
func Alloc(size, align uintptr) (Block, error) { return Heap.Alloc(size, align) }

// Dealloc returns a block of the given Len to Heap.
func Dealloc(addr, size uintptr) { Heap.Dealloc(addr, size) }

// Free reports Heap's free bytes.
func Free() int { return Heap.Free() }
