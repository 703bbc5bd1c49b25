package arena

// Block is a handle to one live allocation. The zero Block is empty.
type Block struct {
	arena *Arena
	off   uintptr
	size  uintptr
}

// Addr is the absolute address of the first byte, 0 for an empty Block.
func (b Block) Addr() uintptr {
	if b.arena == nil {
		return 0
	}
	return b.arena.base + b.off
}

// Offset is the position of the block inside its arena.
func (b Block) Offset() uintptr { return b.off }

// Len is the usable size: the request rounded up to the block granularity,
// plus any hole remainder too small to stay free.
func (b Block) Len() int { return int(b.size) }

// IsZero reports whether b refers to no allocation.
func (b Block) IsZero() bool { return b.arena == nil }

// Bytes views the block's memory. The view is only valid until Release.
func (b Block) Bytes() []byte {
	if b.arena == nil {
		return nil
	}
	return b.arena.mem[b.off : b.off+b.size : b.off+b.size]
}

// Release returns the block to its arena. Releasing an empty Block is a
// no-op; releasing the same Block twice halts the process.
func (b Block) Release() {
	if b.arena == nil {
		return
	}
	b.arena.Dealloc(b.Addr(), b.size)
}
