package pollchan

import (
	"sync"
	"sync/atomic"
)

// queue is the FIFO backing a channel. push may be called from any number of
// goroutines, while pop and empty must only be called by the consumer.
type queue[T any] interface {
	// push enqueues v on behalf of producer, returning false only if the
	// queue is full. It never blocks.
	push(producer uint64, v T) bool
	pop() (T, bool)
	empty() bool
}

type node[T any] struct {
	next atomic.Pointer[node[T]]
	val  T
}

// nodeQueue is an unbounded, lock-free, non-intrusive MPSC queue, based on
// http://www.1024cores.net/home/lock-free-algorithms/queues/non-intrusive-mpsc-node-based-queue
//
// Pushes are linearized by the swap of head, so values are observed in swap
// order, across all producers. A producer preempted between its swap and its
// link hides every later value until it resumes, during which pop reports
// empty.
type nodeQueue[T any] struct { // betteralign:ignore
	_        [sizeOfCacheLine]byte //nolint:unused
	head     atomic.Pointer[node[T]]
	_        [sizeOfCacheLine]byte //nolint:unused
	tail     *node[T]              // consumer only
	nodePool sync.Pool
}

func newNodeQueue[T any]() *nodeQueue[T] {
	q := &nodeQueue[T]{nodePool: sync.Pool{New: func() any {
		return new(node[T])
	}}}
	stub := new(node[T])
	q.head.Store(stub)
	q.tail = stub
	return q
}

func (q *nodeQueue[T]) push(_ uint64, v T) bool {
	n := q.nodePool.Get().(*node[T])
	n.val = v
	// acquire the head position
	prev := q.head.Swap(n)
	// release the node to the consumer
	prev.next.Store(n)
	return true
}

func (q *nodeQueue[T]) pop() (v T, ok bool) {
	tail := q.tail
	next := tail.next.Load()
	if next == nil {
		return v, false
	}
	var zero T
	q.tail = next
	v = next.val
	next.val = zero
	tail.next.Store(nil)
	q.nodePool.Put(tail)
	return v, true
}

func (q *nodeQueue[T]) empty() bool {
	return q.tail.next.Load() == nil
}
