package nntppool

import (
	"container/heap"

	"github.com/binarynews/nntpclient/nntp"
)

// waiter is a single caller blocked waiting for a connection. completion is
// a one-shot slot: the dispatcher sends either a connection or nil (on pool
// close) exactly once.
type waiter struct {
	priority   int
	sequence   uint64
	completion chan *nntp.Connection
	index      int // position in the heap, maintained by container/heap
}

// waiterQueue is a priority queue ordered by (priority desc, sequence asc):
// higher priority is served first, ties broken FIFO by arrival order.
type waiterQueue []*waiter

func (q waiterQueue) Len() int { return len(q) }

func (q waiterQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].sequence < q[j].sequence
}

func (q waiterQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *waiterQueue) Push(x any) {
	w := x.(*waiter)
	w.index = len(*q)
	*q = append(*q, w)
}

func (q *waiterQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*q = old[:n-1]
	return w
}

// remove drops a specific waiter from the queue, used when a caller's
// context is cancelled before it was dispatched a connection.
func (q *waiterQueue) remove(w *waiter) {
	if w.index < 0 || w.index >= q.Len() || (*q)[w.index] != w {
		return
	}
	heap.Remove(q, w.index)
}
