// utils.go — word access and alignment helpers shared by the arena and its
// containers.
package utils

import "unsafe"

///////////////////////////////////////////////////////////////////////////////
// Word Access: In-Place Reads & Writes Over Byte Regions
///////////////////////////////////////////////////////////////////////////////

// Load64 reads the 64-bit word at b[0:8].
// ⚠️ &b[0] must be 8-byte aligned; arena offsets always are.
//
//go:nosplit
func Load64(b []byte) uint64 {
	_ = b[7] // bounds check hint
	return *(*uint64)(unsafe.Pointer(&b[0]))
}

// Store64 writes v into b[0:8] under the same alignment contract as Load64.
//
//go:nosplit
func Store64(b []byte, v uint64) {
	_ = b[7]
	*(*uint64)(unsafe.Pointer(&b[0])) = v
}

// Addr returns the address of b[0], or 0 for an empty slice.
func Addr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

///////////////////////////////////////////////////////////////////////////////
// Alignment Arithmetic
///////////////////////////////////////////////////////////////////////////////

// IsPow2 reports whether x is a non-zero power of two.
//
//go:nosplit
func IsPow2(x uintptr) bool {
	return x != 0 && x&(x-1) == 0
}

// AlignUp rounds x up to a multiple of align, which must be a power of two.
//
//go:nosplit
func AlignUp(x, align uintptr) uintptr {
	return (x + align - 1) &^ (align - 1)
}

// AlignDown rounds x down to a multiple of align (power of two).
//
//go:nosplit
func AlignDown(x, align uintptr) uintptr {
	return x &^ (align - 1)
}
