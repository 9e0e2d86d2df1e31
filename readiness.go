package pollchan

import (
	"sync/atomic"
)

// Readiness is the state of a channel's readiness flag, as reported by
// [Receiver.Readiness].
//
// State Machine:
//
//	ReadinessEmpty → ReadinessReady    [markReady(), CAS, the winner notifies]
//	ReadinessReady → ReadinessEmpty    [markEmpty(), CAS, then re-check]
//	ReadinessEmpty → ReadinessClosed   [markClosed()]
//	ReadinessReady → ReadinessClosed   [markClosed()]
//	ReadinessClosed → (terminal)
//
// The flag is downstream of queue occupancy: it may briefly read Empty while
// a value is being linked, but never stays Empty while a value is readable.
type Readiness uint32

const (
	// ReadinessEmpty indicates nothing to receive, and Senders remain.
	ReadinessEmpty Readiness = iota
	// ReadinessReady indicates a value is available, or that the last
	// Sender has gone and the Receiver has yet to observe it. The latter
	// holds even when no values remain: like EOF on a socket, a hung-up
	// channel is readable, so a registered poller is woken to deliver
	// ErrDisconnected.
	ReadinessReady
	// ReadinessClosed indicates the Receiver observed the disconnect.
	ReadinessClosed
)

// String returns a human-readable representation of the state.
func (s Readiness) String() string {
	switch s {
	case ReadinessEmpty:
		return "Empty"
	case ReadinessReady:
		return "Ready"
	case ReadinessClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// readinessFlag is a lock-free, cache-line padded readiness state machine.
//
// Only the goroutine that wins the Empty→Ready CAS calls notify, so each
// readiness edge produces exactly one notification, regardless of how many
// producers race.
type readinessFlag struct { // betteralign:ignore
	_      [sizeOfCacheLine]byte //nolint:unused
	v      atomic.Uint32
	_      [sizeOfCacheLine - sizeOfAtomicUint32]byte //nolint:unused
	notify func()
}

// Load returns the current state.
func (x *readinessFlag) Load() Readiness {
	return Readiness(x.v.Load())
}

// markReady performs the Empty→Ready edge, returning true if this call won
// (and therefore notified).
func (x *readinessFlag) markReady() bool {
	if !x.v.CompareAndSwap(uint32(ReadinessEmpty), uint32(ReadinessReady)) {
		return false
	}
	if x.notify != nil {
		x.notify()
	}
	return true
}

// markEmpty performs the Ready→Empty transition, then re-checks pending, to
// repair a push (or hang-up) that raced the clear, and would otherwise have
// been lost.
func (x *readinessFlag) markEmpty(pending func() bool) {
	if !x.v.CompareAndSwap(uint32(ReadinessReady), uint32(ReadinessEmpty)) {
		return
	}
	if pending() {
		x.markReady()
	}
}

// markClosed transitions to the terminal state, returning false if it was
// already closed.
func (x *readinessFlag) markClosed() bool {
	for {
		cur := x.v.Load()
		if cur == uint32(ReadinessClosed) {
			return false
		}
		if x.v.CompareAndSwap(cur, uint32(ReadinessClosed)) {
			return true
		}
	}
}
