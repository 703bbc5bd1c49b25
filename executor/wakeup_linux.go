//go:build linux

package executor

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// wakeup parks an executor thread on an eventfd. A write from any core
// makes the fd readable, which is visible to a thread blocked in poll(2) on
// another CPU.
type wakeup struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

var eventOne = [8]byte{1}

func newWakeup() (*wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &wakeup{fd: fd}, nil
}

func (w *wakeup) signal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	// EAGAIN means the counter is saturated, which already wakes the reader
	_, _ = unix.Write(w.fd, eventOne[:])
}

// wait blocks until signalled or timeout elapses; timeout < 0 waits forever.
func (w *wakeup) wait(timeout time.Duration) {
	ms := -1
	if timeout >= 0 {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
	if _, err := unix.Poll(fds, ms); err != nil && !errors.Is(err, unix.EINTR) {
		// poll failing on our own fd leaves nothing to wait on; degrade to a
		// short sleep so the loop keeps its cadence
		time.Sleep(time.Millisecond)
		return
	}
	var buf [8]byte
	_, _ = unix.Read(w.fd, buf[:])
}

func (w *wakeup) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return unix.Close(w.fd)
}
