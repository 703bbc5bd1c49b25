//go:build linux

// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: main_linux.go — Linux process tuning before the cores start
//
// Purpose:
//   - Locks current and future pages so the arena and executor state never
//     page-fault on the hot path
//   - Raises the GC target; core loops allocate from the arena, not the heap
//
// ⚠️ mlockall needs CAP_IPC_LOCK or a large RLIMIT_MEMLOCK; without it the
//    runtime continues unlocked.
// ─────────────────────────────────────────────────────────────────────────────

package main

import (
	rtdebug "runtime/debug"

	"golang.org/x/sys/unix"

	"twincore/debug"
)

func tuneProcess(log *debug.Logger) {
	rtdebug.SetGCPercent(400)
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		log.Warnf("mlockall: %v (continuing unlocked)", err)
		return
	}
	log.DropMessage("INIT", "memory locked")
}
