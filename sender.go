package pollchan

import (
	"sync/atomic"
)

// Sender is the sending half of a channel. It is safe for concurrent use,
// and may be cloned, to obtain additional handles for the same channel.
//
// Every Sender must be closed. Once all Senders are closed, the Receiver
// receives the values already sent, then ErrDisconnected.
type Sender[T any] struct {
	_        [0]func()
	state    *chanState[T]
	producer uint64
	closed   atomic.Bool
}

// Send enqueues value without blocking. On success the channel becomes
// ready, and a registered poller is woken if it was empty.
//
// On failure the returned error is a *[SendError] holding value, wrapping
// ErrDisconnected (the Receiver is closed), ErrSenderClosed (this handle is
// closed), or ErrFull (a bounded channel is at capacity).
func (x *Sender[T]) Send(value T) error {
	if x.closed.Load() {
		return &SendError[T]{Value: value, Err: ErrSenderClosed}
	}
	s := x.state
	if s.receiverClosed.Load() {
		return &SendError[T]{Value: value, Err: ErrDisconnected}
	}
	if !s.queue.push(x.producer, value) {
		return &SendError[T]{Value: value, Err: ErrFull}
	}
	s.readiness.markReady()
	return nil
}

// TrySend is equivalent to Send, which never blocks.
func (x *Sender[T]) TrySend(value T) error {
	return x.Send(value)
}

// Clone returns a new, independent, Sender for the same channel. It panics
// if this handle is closed.
func (x *Sender[T]) Clone() *Sender[T] {
	if x.closed.Load() {
		panic(`pollchan: clone of closed sender`)
	}
	s := x.state
	s.senders.Add(1)
	s.refs.Add(1)
	return s.newSender()
}

// Close releases this handle. It is idempotent. Closing the last Sender
// hangs up the channel, waking the Receiver.
//
// Close must not be called concurrently with Send on the same handle.
func (x *Sender[T]) Close() error {
	if x.closed.Swap(true) {
		return nil
	}
	s := x.state
	if s.senders.Add(-1) == 0 {
		s.hangUp()
	}
	s.release()
	return nil
}
