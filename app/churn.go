package app

import (
	"fmt"

	"twincore/arena"
	"twincore/constants"
	"twincore/debug"
)

// Warmup pushes WarmupLen values into a fresh vec before any core starts,
// logging free space on each push, then releases it.
func Warmup(heap *arena.Arena, log *debug.Logger) error {
	v := arena.NewVec(heap)
	defer v.Release()
	for i := uint64(0); i < constants.WarmupLen; i++ {
		log.Logf("free=%d", heap.Free())
		if err := v.Push(i + 10); err != nil {
			return fmt.Errorf("warmup push %d: %w", i, err)
		}
	}
	log.Logf("x.len()=%d", v.Len())
	return nil
}

// heapCategory is the telemetry category for task's free-space records.
func heapCategory(task string) string { return "heap/" + task }

// churn builds a WarmupLen vec starting at base, logging free space before
// and after under category, and releases it. A failed allocation is logged
// and the step is abandoned.
func churn(heap *arena.Arena, log *debug.Logger, category string, base uint64) {
	log.Throttled(category, "heap free = %d bytes", heap.Free())
	v := arena.NewVec(heap)
	defer v.Release()
	for i := uint64(0); i < constants.WarmupLen; i++ {
		if err := v.Push(base + i); err != nil {
			log.DropError("churn skipped", err)
			return
		}
	}
	log.Throttled(category, "heap free = %d bytes", heap.Free())
}

// filterOdd builds 1..9, copies the odd values into a second vec, logs both
// lengths and releases both.
func filterOdd(heap *arena.Arena, log *debug.Logger) {
	y := arena.NewVec(heap)
	defer y.Release()
	for i := uint64(1); i < 10; i++ {
		if err := y.Push(i); err != nil {
			log.DropError("filter skipped", err)
			return
		}
	}
	log.Debugf("y.len() = %d", y.Len())

	odd, err := y.Filter(func(x uint64) bool { return x&1 == 1 })
	if err != nil {
		log.DropError("filter skipped", err)
		return
	}
	log.Debugf("a.len() = %d", odd.Len())
	odd.Release()
}
