package executor

import (
	"container/heap"
	"time"
)

type timerEntry struct {
	deadline time.Time
	cell     *taskCell
}

// timerQueue is a per-executor min-heap of deadlines. Only the executor's
// own thread touches it.
type timerQueue struct {
	items []timerEntry
}

func (q *timerQueue) Len() int           { return len(q.items) }
func (q *timerQueue) Less(i, j int) bool { return q.items[i].deadline.Before(q.items[j].deadline) }
func (q *timerQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *timerQueue) Push(x any)         { q.items = append(q.items, x.(timerEntry)) }

func (q *timerQueue) Pop() any {
	n := len(q.items) - 1
	e := q.items[n]
	q.items[n] = timerEntry{}
	q.items = q.items[:n]
	return e
}

func (q *timerQueue) push(deadline time.Time, cell *taskCell) {
	heap.Push(q, timerEntry{deadline: deadline, cell: cell})
}

// next returns the earliest deadline.
func (q *timerQueue) next() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].deadline, true
}

// fire wakes every task whose deadline is not after now and returns how
// many entries fired.
func (q *timerQueue) fire(now time.Time) int {
	n := 0
	for len(q.items) > 0 && !q.items[0].deadline.After(now) {
		e := heap.Pop(q).(timerEntry)
		if e.cell.timerAt.Equal(e.deadline) {
			e.cell.timerAt = time.Time{}
		}
		e.cell.woken.Store(1)
		n++
	}
	return n
}
