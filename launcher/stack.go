package launcher

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	ErrStackOverflow = errors.New("launcher: stack canary clobbered")
	ErrStackSize     = errors.New("launcher: bad stack size")
)

const (
	canary      = 0x5AFE_C0DE_DEAD_BEEF
	canaryWords = 4
	wordSize    = int(unsafe.Sizeof(uint64(0)))
)

// Stack is the fixed region reserved for the second core. Its low words hold
// canaries; a write that runs off the usable area clobbers them and Check
// reports it.
//
// Goroutine stacks belong to the Go runtime, so core 1 never executes on this
// region. The executor's stack guard still checks the canaries on every idle
// pass, which catches stray writes through Usable but not real call-depth
// overflow.
type Stack struct {
	words []uint64
}

// NewStack reserves size bytes. size must be a word multiple with room for
// the canaries and at least as much usable space.
func NewStack(size int) (*Stack, error) {
	if size%wordSize != 0 || size < 2*canaryWords*wordSize {
		return nil, fmt.Errorf("%w: %d", ErrStackSize, size)
	}
	s := &Stack{words: make([]uint64, size/wordSize)}
	for i := 0; i < canaryWords; i++ {
		s.words[i] = canary
	}
	return s, nil
}

// Check verifies the canaries.
func (s *Stack) Check() error {
	for i := 0; i < canaryWords; i++ {
		if s.words[i] != canary {
			return fmt.Errorf("%w: word %d = %#x", ErrStackOverflow, i, s.words[i])
		}
	}
	return nil
}

// Size is the reserved size in bytes, canaries included.
func (s *Stack) Size() int { return len(s.words) * wordSize }

// Usable returns the region above the canaries.
func (s *Stack) Usable() []byte {
	w := s.words[canaryWords:]
	return unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), len(w)*wordSize)
}
