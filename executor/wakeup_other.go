//go:build !linux

package executor

import "time"

// wakeup parks an executor on a one-slot channel where no eventfd exists.
type wakeup struct {
	ch chan struct{}
}

func newWakeup() (*wakeup, error) {
	return &wakeup{ch: make(chan struct{}, 1)}, nil
}

func (w *wakeup) signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *wakeup) wait(timeout time.Duration) {
	if timeout < 0 {
		<-w.ch
		return
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.ch:
	case <-t.C:
	}
}

func (w *wakeup) close() error { return nil }
