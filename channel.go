package pollchan

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-pollchan/poll"
	"github.com/joeycumines/logiface"
)

// chanTestHooks provides injection points for deterministic race testing.
type chanTestHooks struct {
	OnNotify func() // Called by the winner of each Empty→Ready edge
}

var chanIDCounter atomic.Uint64

// chanState is shared by every handle of a single channel.
type chanState[T any] struct {
	queue     queue[T]
	logger    *logiface.Logger[logiface.Event]
	testHooks *chanTestHooks

	// waker is installed by registration, producers only ever Load it
	waker atomic.Pointer[poll.Waker]

	readiness readinessFlag

	// senders counts open Sender handles, zero is terminal
	senders atomic.Int64
	// refs counts open handles, Senders and the Receiver
	refs atomic.Int64

	producerIDs    atomic.Uint64
	receiverClosed atomic.Bool

	id uint64
}

// New creates an unbounded channel, returning its sending and receiving
// halves. Sends never fail for lack of space.
//
// With the unbounded queue, values are received in a single order consistent
// with each Send's linearization point, which implies per-Sender FIFO.
func New[T any](opts ...Option) (*Sender[T], *Receiver[T], error) {
	cfg, err := resolveChannelOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	tx, rx := newChannel[T](newNodeQueue[T](), cfg)
	return tx, rx, nil
}

// NewBounded creates a channel that holds at most capacity values. Sends
// beyond that fail with ErrFull, handing the value back, and never block.
//
// Values from each Sender are received in the order they were sent. With
// more than one shard (see [WithShards]), the interleaving of values from
// different Senders is unspecified.
func NewBounded[T any](capacity int, opts ...Option) (*Sender[T], *Receiver[T], error) {
	if capacity <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	cfg, err := resolveChannelOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	q, err := newRingQueue[T](capacity, cfg.shards)
	if err != nil {
		return nil, nil, fmt.Errorf("pollchan: bounded queue: %w", err)
	}
	tx, rx := newChannel[T](q, cfg)
	return tx, rx, nil
}

func newChannel[T any](q queue[T], cfg *channelOptions) (*Sender[T], *Receiver[T]) {
	s := &chanState[T]{
		queue:  q,
		logger: cfg.logger,
		id:     chanIDCounter.Add(1),
	}
	s.readiness.notify = s.notify
	s.senders.Store(1)
	s.refs.Store(2)

	s.logger.Debug().
		Uint64(`channel`, s.id).
		Log(`channel created`)

	return s.newSender(), &Receiver[T]{state: s}
}

func (x *chanState[T]) newSender() *Sender[T] {
	return &Sender[T]{
		state:    x,
		producer: x.producerIDs.Add(1) - 1,
	}
}

// pending reports whether the receiver has anything to observe, a value or
// the hang-up. Consumer only.
func (x *chanState[T]) pending() bool {
	return !x.queue.empty() || x.senders.Load() == 0
}

// notify is called exactly once per readiness edge.
func (x *chanState[T]) notify() {
	if h := x.testHooks; h != nil && h.OnNotify != nil {
		h.OnNotify()
	}
	if w := x.waker.Load(); w != nil {
		x.wake(w)
	}
}

func (x *chanState[T]) wake(w *poll.Waker) {
	err := w.Wake()
	switch {
	case err == nil:
	case errors.Is(err, poll.ErrWakerClosed), errors.Is(err, poll.ErrPollerClosed):
		// raced a deregistration, or the poller went away first
		x.logger.Debug().
			Uint64(`channel`, x.id).
			Err(err).
			Log(`wake skipped`)
	default:
		x.logger.Err().
			Uint64(`channel`, x.id).
			Uint64(`token`, uint64(w.Token())).
			Err(err).
			Limit().
			Log(`failed to wake poller`)
	}
}

// install publishes w to producers, then surfaces any readiness that
// predates it. Either this check observes a producer's edge, or that
// producer observes w, so a concurrent send may cause a second (coalesced)
// wake, but never none.
func (x *chanState[T]) install(w *poll.Waker) {
	x.waker.Store(w)
	x.surface(w)
}

func (x *chanState[T]) surface(w *poll.Waker) {
	if x.readiness.Load() != ReadinessEmpty {
		x.wake(w)
	}
}

// uninstall clears the waker, if it is still w.
func (x *chanState[T]) uninstall(w *poll.Waker) {
	x.waker.CompareAndSwap(w, nil)
}

// hangUp is called once, by the last Sender to close. The closed stream is
// readable, like EOF, so the receiver is woken to observe ErrDisconnected.
func (x *chanState[T]) hangUp() {
	x.logger.Debug().
		Uint64(`channel`, x.id).
		Log(`all senders closed`)
	x.readiness.markReady()
}

// release drops a handle's reference, destroying the channel when it was
// the last.
func (x *chanState[T]) release() {
	if x.refs.Add(-1) != 0 {
		return
	}
	var discarded int
	for {
		if _, ok := x.queue.pop(); !ok {
			break
		}
		discarded++
	}
	x.readiness.markClosed()
	x.waker.Store(nil)
	x.logger.Debug().
		Uint64(`channel`, x.id).
		Int(`discarded`, discarded).
		Log(`channel released`)
}
