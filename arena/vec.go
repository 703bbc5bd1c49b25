package arena

import (
	"fmt"

	"twincore/utils"
)

// minVecCap matches the smallest non-zero capacity a growable vector of
// 8-byte elements starts with.
const minVecCap = 4

// Vec is a growable sequence of uint64 stored in an arena. It is owned by a
// single task; only the arena underneath is shared.
type Vec struct {
	arena *Arena
	blk   Block
	n     int
	cap   int
}

// NewVec returns an empty vector; nothing is allocated until the first Push.
func NewVec(a *Arena) *Vec {
	return &Vec{arena: a}
}

// Len is the number of stored values.
func (v *Vec) Len() int { return v.n }

// Cap is the number of values that fit before the next reallocation.
func (v *Vec) Cap() int { return v.cap }

// Push appends x, growing the backing block when full. On allocation
// failure the vector is left unchanged.
func (v *Vec) Push(x uint64) error {
	if v.n == v.cap {
		if err := v.grow(); err != nil {
			return err
		}
	}
	utils.Store64(v.blk.Bytes()[v.n*wordSize:], x)
	v.n++
	return nil
}

// At returns the i-th value.
func (v *Vec) At(i int) uint64 {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("arena: vec index %d out of range [0,%d)", i, v.n))
	}
	return utils.Load64(v.blk.Bytes()[i*wordSize:])
}

// Values copies the contents out of the arena.
func (v *Vec) Values() []uint64 {
	out := make([]uint64, v.n)
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// Filter collects the values matching keep into a new vector in the same
// arena. On failure nothing stays allocated.
func (v *Vec) Filter(keep func(uint64) bool) (*Vec, error) {
	out := NewVec(v.arena)
	for i := 0; i < v.n; i++ {
		if x := v.At(i); keep(x) {
			if err := out.Push(x); err != nil {
				out.Release()
				return nil, err
			}
		}
	}
	return out, nil
}

// Release frees the backing block and empties the vector.
func (v *Vec) Release() {
	v.blk.Release()
	v.blk, v.n, v.cap = Block{}, 0, 0
}

func (v *Vec) grow() error {
	next := v.cap * 2
	if next < minVecCap {
		next = minVecCap
	}
	blk, err := v.arena.Alloc(uintptr(next*wordSize), wordSize)
	if err != nil {
		return fmt.Errorf("vec grow %d->%d: %w", v.cap, next, err)
	}
	copy(blk.Bytes(), v.blk.Bytes()[:v.n*wordSize])
	v.blk.Release()
	v.blk, v.cap = blk, next
	return nil
}
