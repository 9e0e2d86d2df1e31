package pollchan

import (
	"errors"
)

// Standard errors.
var (
	// ErrEmpty is returned by [Receiver.TryRecv] when no value is available,
	// but at least one [Sender] remains. It is transient.
	ErrEmpty = errors.New("pollchan: channel empty")

	// ErrDisconnected is returned by [Receiver.TryRecv] once every Sender is
	// closed and the queue is drained, and (wrapped in [SendError]) by
	// [Sender.Send] once the Receiver is closed. It is terminal.
	ErrDisconnected = errors.New("pollchan: channel disconnected")

	// ErrFull is returned (wrapped in [SendError]) when a bounded channel is
	// at capacity. It is transient.
	ErrFull = errors.New("pollchan: channel full")

	// ErrSenderClosed is returned (wrapped in [SendError]) when sending on a
	// Sender handle that has been closed.
	ErrSenderClosed = errors.New("pollchan: sender closed")

	// ErrReceiverClosed is returned by Receiver methods called after
	// [Receiver.Close].
	ErrReceiverClosed = errors.New("pollchan: receiver closed")

	ErrAlreadyRegistered = errors.New("pollchan: receiver already registered")
	ErrNotRegistered     = errors.New("pollchan: receiver not registered with this poller")
	ErrInvalidInterest   = errors.New("pollchan: interest must include poll.EventRead")
	ErrInvalidCapacity   = errors.New("pollchan: capacity must be positive")
	ErrInvalidShards     = errors.New("pollchan: shards must be a positive power of two")
)

// SendError is returned by [Sender.Send] when the value could not be
// enqueued. Value is the value that was passed to Send, unchanged.
//
// Use [errors.Is] to test the cause, e.g. errors.Is(err, ErrDisconnected),
// and [errors.As] to recover the value.
type SendError[T any] struct {
	Value T
	Err   error
}

// Error implements the error interface.
func (e *SendError[T]) Error() string {
	if e.Err == nil {
		return "pollchan: send failed"
	}
	return "pollchan: send failed: " + e.Err.Error()
}

// Unwrap returns the cause.
func (e *SendError[T]) Unwrap() error {
	return e.Err
}
