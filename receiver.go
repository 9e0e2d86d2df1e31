package pollchan

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-pollchan/poll"
)

// Receiver is the receiving half of a channel. It is a [poll.Source]: once
// registered with a [poll.Poller], the poller reports the token as readable
// whenever the channel becomes ready.
//
// TryRecv must only be called by one goroutine at a time. Registration
// methods may be called from any goroutine.
type Receiver[T any] struct {
	_     [0]func()
	state *chanState[T]

	mu     sync.Mutex // guards reg
	reg    *registration
	closed atomic.Bool
}

type registration struct {
	poller   *poll.Poller
	waker    *poll.Waker
	token    poll.Token
	interest poll.IOEvents
}

var _ poll.Source = (*Receiver[struct{}])(nil)

// TryRecv receives a value without blocking.
//
// It returns ErrEmpty if no value is available, and ErrDisconnected once all
// Senders are closed and every value sent has been received. ErrDisconnected
// is terminal, ErrEmpty is never returned after it.
func (x *Receiver[T]) TryRecv() (value T, err error) {
	if x.closed.Load() {
		return value, ErrReceiverClosed
	}

	s := x.state

	if s.readiness.Load() == ReadinessClosed {
		return value, ErrDisconnected
	}

	if v, ok := s.queue.pop(); ok {
		// while disconnected the flag stays ready, for ErrDisconnected
		if s.queue.empty() && s.senders.Load() != 0 {
			s.readiness.markEmpty(s.pending)
		}
		return v, nil
	}

	if s.senders.Load() == 0 {
		// values sent before the last Close are visible, now
		if v, ok := s.queue.pop(); ok {
			return v, nil
		}
		if s.readiness.markClosed() {
			s.logger.Debug().
				Uint64(`channel`, s.id).
				Log(`receiver observed disconnect`)
		}
		return value, ErrDisconnected
	}

	s.readiness.markEmpty(s.pending)
	return value, ErrEmpty
}

// Readiness returns the current state of the channel's readiness flag.
func (x *Receiver[T]) Readiness() Readiness {
	return x.state.readiness.Load()
}

// Register implements [poll.Source]. The receiver is reported, with token,
// each time the channel transitions from empty to ready, until deregistered.
//
// Notification is edge-triggered, but registration is level-triggered: if
// the channel is already ready (or disconnected) when registered, the token
// is reported by the next poll, even though no new edge occurred. After an
// event, the consumer should call TryRecv until it returns an error, as
// further events won't be reported until then.
//
// Interest must include [poll.EventRead], other events are ignored.
func (x *Receiver[T]) Register(p *poll.Poller, token poll.Token, interest poll.IOEvents) error {
	if p == nil {
		panic(`pollchan: nil poller`)
	}
	if interest&poll.EventRead == 0 {
		return ErrInvalidInterest
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed.Load() {
		return ErrReceiverClosed
	}
	if x.reg != nil {
		return ErrAlreadyRegistered
	}

	w, err := p.NewWaker(token)
	if err != nil {
		return err
	}

	x.reg = &registration{
		poller:   p,
		waker:    w,
		token:    token,
		interest: interest,
	}
	x.state.install(w)

	x.state.logger.Debug().
		Uint64(`channel`, x.state.id).
		Uint64(`token`, uint64(token)).
		Log(`receiver registered`)

	return nil
}

// Reregister implements [poll.Source]. It may move the receiver to a
// different token or poller. Current readiness is surfaced again, as per
// Register.
func (x *Receiver[T]) Reregister(p *poll.Poller, token poll.Token, interest poll.IOEvents) error {
	if p == nil {
		panic(`pollchan: nil poller`)
	}
	if interest&poll.EventRead == 0 {
		return ErrInvalidInterest
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed.Load() {
		return ErrReceiverClosed
	}
	if x.reg == nil {
		return ErrNotRegistered
	}

	if x.reg.poller == p && x.reg.token == token {
		x.reg.interest = interest
		x.state.surface(x.reg.waker)
		return nil
	}

	w, err := p.NewWaker(token)
	if err != nil {
		return err
	}

	old := x.reg
	x.reg = &registration{
		poller:   p,
		waker:    w,
		token:    token,
		interest: interest,
	}
	x.state.install(w)

	if err := old.waker.Close(); err != nil {
		x.state.logger.Warning().
			Uint64(`channel`, x.state.id).
			Uint64(`token`, uint64(old.token)).
			Err(err).
			Log(`failed to close replaced waker`)
	}

	x.state.logger.Debug().
		Uint64(`channel`, x.state.id).
		Uint64(`token`, uint64(token)).
		Log(`receiver reregistered`)

	return nil
}

// Deregister implements [poll.Source]. It is a no-op if the receiver isn't
// registered, and fails with ErrNotRegistered if it is registered with a
// different poller.
func (x *Receiver[T]) Deregister(p *poll.Poller) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.reg == nil {
		return nil
	}
	if x.reg.poller != p {
		return ErrNotRegistered
	}

	return x.deregisterLocked()
}

func (x *Receiver[T]) deregisterLocked() error {
	reg := x.reg
	x.reg = nil
	x.state.uninstall(reg.waker)

	x.state.logger.Debug().
		Uint64(`channel`, x.state.id).
		Uint64(`token`, uint64(reg.token)).
		Log(`receiver deregistered`)

	return reg.waker.Close()
}

// Close releases the receiver. It is idempotent. Subsequent sends fail with
// ErrDisconnected, and values not yet received are discarded.
//
// A registered receiver is deregistered first, failures of which are logged,
// rather than returned. Like TryRecv, Close must not be called concurrently
// with TryRecv.
func (x *Receiver[T]) Close() error {
	x.mu.Lock()
	if x.closed.Swap(true) {
		x.mu.Unlock()
		return nil
	}
	if x.reg != nil {
		if err := x.deregisterLocked(); err != nil {
			x.state.logger.Warning().
				Uint64(`channel`, x.state.id).
				Err(err).
				Log(`failed to deregister closed receiver`)
		}
	}
	x.mu.Unlock()

	s := x.state
	s.receiverClosed.Store(true)
	for {
		if _, ok := s.queue.pop(); !ok {
			break
		}
	}
	s.release()
	return nil
}
