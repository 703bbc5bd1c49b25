//go:build !linux

package main

import (
	rtdebug "runtime/debug"

	"twincore/debug"
)

// tuneProcess only raises the GC target; page locking and CPU pinning are
// Linux-only.
func tuneProcess(log *debug.Logger) {
	rtdebug.SetGCPercent(400)
	log.DropMessage("INIT", "no memory locking on this platform")
}
