package pollchan

import (
	"math/bits"
	"sync/atomic"

	ring "github.com/randomizedcoder/go-lock-free-ring"
)

// ringQueue is a bounded MPSC queue, backed by a sharded lock-free ring.
//
// Each producer id maps to a single shard, preserving per-producer order.
// Every shard is sized to hold the whole capacity, which is instead enforced
// by reserved, so a single producer may always fill the channel.
//
// Within a shard, a value published behind a slot that is claimed but not
// yet written is unreadable until that slot is written. A counter would
// report such values, so empty instead attempts a read, and holds the value
// (if any) for the next pop.
type ringQueue[T any] struct { // betteralign:ignore
	ring     *ring.ShardedRing
	capacity int64
	_        [sizeOfCacheLine]byte //nolint:unused
	// reserved counts slots claimed by producers, it bounds the queue
	reserved atomic.Int64
	_        [sizeOfCacheLine]byte //nolint:unused
	// consumer only
	next    any
	hasNext bool
}

func newRingQueue[T any](capacity, shards int) (*ringQueue[T], error) {
	perShard := uint64(1) << bits.Len64(uint64(capacity-1))
	r, err := ring.NewShardedRing(perShard*uint64(shards), uint64(shards))
	if err != nil {
		return nil, err
	}
	return &ringQueue[T]{
		ring:     r,
		capacity: int64(capacity),
	}, nil
}

func (q *ringQueue[T]) push(producer uint64, v T) bool {
	if q.reserved.Add(1) > q.capacity {
		q.reserved.Add(-1)
		return false
	}
	if !q.ring.Write(producer, v) {
		q.reserved.Add(-1)
		return false
	}
	return true
}

func (q *ringQueue[T]) pop() (v T, ok bool) {
	var e any
	if q.hasNext {
		e, q.next, q.hasNext = q.next, nil, false
	} else if e, ok = q.ring.TryRead(); !ok {
		return v, false
	}
	q.reserved.Add(-1)
	// a nil interface value is the zero value of an interface T
	v, _ = e.(T)
	return v, true
}

// empty reports whether pop would fail.
func (q *ringQueue[T]) empty() bool {
	if q.hasNext {
		return false
	}
	e, ok := q.ring.TryRead()
	if !ok {
		return true
	}
	q.next, q.hasNext = e, true
	return false
}
