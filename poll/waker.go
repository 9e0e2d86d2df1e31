package poll

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Waker allows any goroutine to make a [Poller] report a token as readable.
//
// Wakes coalesce: any number of calls to Wake, between two calls to
// [Poller.Poll], result in the token being reported once. A Waker is created
// by [Poller.NewWaker], and must be closed by its owner.
type Waker struct {
	poller  *Poller
	token   Token
	readID  int
	writeID int
	// mu guards closed, Wake holds it (shared) across the write, so the
	// handle can't be closed (and recycled) mid-write
	mu      sync.RWMutex
	closed  bool
	pending atomic.Bool
}

// NewWaker creates a Waker, registered to report token.
func (x *Poller) NewWaker(token Token) (*Waker, error) {
	if x.closed.Load() {
		return nil, ErrPollerClosed
	}

	readID, writeID, err := x.backend.newWake()
	if err != nil {
		return nil, err
	}

	w := &Waker{
		poller:  x,
		token:   token,
		readID:  readID,
		writeID: writeID,
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed.Load() {
		_ = x.backend.closeWake(readID, writeID)
		return nil, ErrPollerClosed
	}
	if err := x.backend.addWake(readID); err != nil {
		_ = x.backend.closeWake(readID, writeID)
		return nil, err
	}

	x.handles[readID] = handleInfo{
		waker:  w,
		token:  token,
		events: EventRead,
		kind:   handleWaker,
	}

	x.logger.Trace().
		Uint64(`token`, uint64(token)).
		Log(`waker created`)

	return w, nil
}

// Token returns the token this waker reports.
func (x *Waker) Token() Token { return x.token }

// Poller returns the poller this waker was created by.
func (x *Waker) Poller() *Poller { return x.poller }

// Wake causes the next (or current) call to [Poller.Poll] to report the
// waker's token as readable. It is safe to call from any goroutine, and never
// blocks on the poller.
func (x *Waker) Wake() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return ErrWakerClosed
	}
	if x.poller.closed.Load() {
		return ErrPollerClosed
	}

	// the poller drains then clears pending, so either this CAS fails
	// before the drain (and the pending report covers us), or it succeeds,
	// and our write is observed by a subsequent Poll
	if !x.pending.CompareAndSwap(false, true) {
		return nil
	}

	if err := x.poller.backend.wake(x.writeID); err != nil {
		x.pending.Store(false)
		return err
	}

	return nil
}

// Close deregisters and releases the waker. It is idempotent, and may be
// called after the poller is closed.
func (x *Waker) Close() error {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return nil
	}
	x.closed = true
	x.mu.Unlock()

	p := x.poller

	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.handles, x.readID)

	var err error
	if !p.closed.Load() {
		err = p.backend.removeWake(x.readID)
	}

	p.logger.Trace().
		Uint64(`token`, uint64(x.token)).
		Log(`waker closed`)

	return errors.Join(err, p.backend.closeWake(x.readID, x.writeID))
}
