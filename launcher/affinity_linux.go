//go:build linux

// affinity_linux.go
//
// sched_setaffinity(2) binding that pins the calling OS thread to one
// logical CPU.  The caller must already hold runtime.LockOSThread, otherwise
// the goroutine can migrate off the pinned thread.

package launcher

import "golang.org/x/sys/unix"

const affinitySupported = true

// pin binds the current thread to cpu (pid 0 = calling thread).
func pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
