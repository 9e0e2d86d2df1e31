package poll

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Standard errors.
var (
	ErrFDOutOfRange        = errors.New("poll: fd out of range (max 100000000)")
	ErrFDAlreadyRegistered = errors.New("poll: fd already registered")
	ErrFDNotRegistered     = errors.New("poll: fd not registered")
	ErrPollerClosed        = errors.New("poll: poller closed")
	ErrWakerClosed         = errors.New("poll: waker closed")
	ErrNoEventCapacity     = errors.New("poll: events buffer has zero length")
)

// maxFDLimit is the maximum FD value accepted by RegisterFD.
const maxFDLimit = 100000000

// Token identifies a registration. It is chosen by the caller, and is
// reported back, unchanged, in every Event for that registration.
type Token uint64

// IOEvents represents the type of I/O events to monitor, or that occurred.
type IOEvents uint32

const (
	// EventRead indicates the source is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the source is ready for writing.
	EventWrite
	// EventError indicates an error condition on the source.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// String returns a human-readable representation of the events.
func (e IOEvents) String() string {
	if e == 0 {
		return "none"
	}
	var b []byte
	for _, v := range [...]struct {
		bit  IOEvents
		name string
	}{
		{EventRead, "read"},
		{EventWrite, "write"},
		{EventError, "error"},
		{EventHangup, "hangup"},
	} {
		if e&v.bit == 0 {
			continue
		}
		if len(b) != 0 {
			b = append(b, '|')
		}
		b = append(b, v.name...)
	}
	return string(b)
}

// Event is a single readiness notification, as filled in by [Poller.Poll].
type Event struct {
	Token  Token
	Events IOEvents
}

// Readable reports whether the event includes EventRead.
func (e Event) Readable() bool { return e.Events&EventRead != 0 }

// Writable reports whether the event includes EventWrite.
func (e Event) Writable() bool { return e.Events&EventWrite != 0 }

// Source is implemented by anything that may be registered with a Poller.
//
// Implementations typically delegate to [Poller.RegisterFD] (see [FD]), or to
// [Poller.NewWaker], for sources that are not backed by a file descriptor.
// Callers should prefer [Poller.Register] and friends, rather than calling
// these methods directly.
type Source interface {
	Register(poller *Poller, token Token, interest IOEvents) error
	Reregister(poller *Poller, token Token, interest IOEvents) error
	Deregister(poller *Poller) error
}

// FD adapts a raw file descriptor to [Source].
type FD int

var _ Source = FD(0)

// Register implements [Source].
func (x FD) Register(poller *Poller, token Token, interest IOEvents) error {
	return poller.RegisterFD(int(x), token, interest)
}

// Reregister implements [Source].
func (x FD) Reregister(poller *Poller, token Token, interest IOEvents) error {
	return poller.ModifyFD(int(x), token, interest)
}

// Deregister implements [Source].
func (x FD) Deregister(poller *Poller) error {
	return poller.UnregisterFD(int(x))
}

type handleKind uint8

const (
	handleFD handleKind = iota
	handleWaker
	handleInternal
)

// handleInfo stores per-handle registration information.
type handleInfo struct {
	waker  *Waker
	token  Token
	events IOEvents
	kind   handleKind
}

// Poller multiplexes readiness of registered sources, using the platform's
// native mechanism:
//   - Linux: epoll (wakers use eventfd)
//   - Darwin: kqueue (wakers use a non-blocking self-pipe)
//   - Windows: IOCP (wakers post completion packets, raw FDs unsupported)
//
// Registration methods are safe to call from any goroutine. Poll must only be
// called by one goroutine at a time.
//
// CALLBACK-FREE DISPATCH: unlike a full event loop, Poll only reports tokens,
// it never calls back into user code, which means it is always safe to
// (de)register from the goroutine that is processing events.
type Poller struct { // betteralign:ignore
	_       [0]func()
	backend fastPoller
	logger  *logiface.Logger[logiface.Event]
	handles map[int]handleInfo
	pollMu  sync.Mutex
	mu      sync.RWMutex
	// internal wake handle, used by Close to interrupt Poll
	wakeRead  int
	wakeWrite int
	closed    atomic.Bool
}

// New initializes a Poller. The caller must call Close, to release the
// underlying OS resources.
func New(opts ...Option) (*Poller, error) {
	cfg, err := resolvePollerOptions(opts)
	if err != nil {
		return nil, err
	}
	x := &Poller{
		logger:  cfg.logger,
		handles: make(map[int]handleInfo),
	}
	if err := x.backend.init(cfg.eventBufferSize); err != nil {
		return nil, err
	}
	if err := x.initWake(); err != nil {
		_ = x.backend.close()
		return nil, err
	}
	x.handles[x.wakeRead] = handleInfo{kind: handleInternal}
	x.logger.Debug().
		Int(`buffer`, cfg.eventBufferSize).
		Log(`poller initialized`)
	return x, nil
}

func (x *Poller) initWake() (err error) {
	if x.wakeRead, x.wakeWrite, err = x.backend.newWake(); err != nil {
		return err
	}
	if err = x.backend.addWake(x.wakeRead); err != nil {
		_ = x.backend.closeWake(x.wakeRead, x.wakeWrite)
		return err
	}
	return nil
}

// Close releases the poller. It is idempotent. Wakers created by the poller
// remain owned by their creators, and must still be closed, but will no
// longer deliver events.
func (x *Poller) Close() error {
	if x.closed.Swap(true) {
		return nil
	}

	// interrupt then wait for any in-progress Poll
	_ = x.backend.wake(x.wakeWrite)
	x.pollMu.Lock()
	defer x.pollMu.Unlock()

	// registration methods re-check closed under mu
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.handles, x.wakeRead)

	x.logger.Debug().Log(`poller closed`)

	return errors.Join(
		x.backend.closeWake(x.wakeRead, x.wakeWrite),
		x.backend.close(),
	)
}

// Register registers src, by calling [Source.Register]. It panics if src is
// nil.
func (x *Poller) Register(src Source, token Token, interest IOEvents) error {
	if src == nil {
		panic(`poll: nil source`)
	}
	if x.closed.Load() {
		return ErrPollerClosed
	}
	return src.Register(x, token, interest)
}

// Reregister updates the registration of src, by calling
// [Source.Reregister]. It panics if src is nil.
func (x *Poller) Reregister(src Source, token Token, interest IOEvents) error {
	if src == nil {
		panic(`poll: nil source`)
	}
	if x.closed.Load() {
		return ErrPollerClosed
	}
	return src.Reregister(x, token, interest)
}

// Deregister removes the registration of src, by calling
// [Source.Deregister]. It panics if src is nil. Unlike the other registration
// methods, it is permitted after Close, to allow sources to release their
// resources.
func (x *Poller) Deregister(src Source) error {
	if src == nil {
		panic(`poll: nil source`)
	}
	return src.Deregister(x)
}

// RegisterFD registers a file descriptor for I/O event monitoring.
//
// The registration is level-triggered: a readable fd will be reported by
// every call to Poll, until it is drained.
func (x *Poller) RegisterFD(fd int, token Token, interest IOEvents) error {
	if x.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDLimit {
		return ErrFDOutOfRange
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed.Load() {
		return ErrPollerClosed
	}
	if _, ok := x.handles[fd]; ok {
		return ErrFDAlreadyRegistered
	}

	// held across the syscall, to avoid racing a concurrent UnregisterFD
	if err := x.backend.add(fd, interest); err != nil {
		return err
	}

	x.handles[fd] = handleInfo{token: token, events: interest, kind: handleFD}
	return nil
}

// ModifyFD updates the token and events being monitored for a file
// descriptor.
func (x *Poller) ModifyFD(fd int, token Token, interest IOEvents) error {
	if x.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 {
		return ErrFDOutOfRange
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed.Load() {
		return ErrPollerClosed
	}
	info, ok := x.handles[fd]
	if !ok || info.kind != handleFD {
		return ErrFDNotRegistered
	}

	if err := x.backend.modify(fd, info.events, interest); err != nil {
		return err
	}

	info.token = token
	info.events = interest
	x.handles[fd] = info
	return nil
}

// UnregisterFD removes a file descriptor from monitoring.
//
// Events already retrieved by a concurrent Poll may still be reported after
// UnregisterFD returns. Always call UnregisterFD before closing the fd, to
// avoid stale events due to FD recycling.
func (x *Poller) UnregisterFD(fd int) error {
	if fd < 0 {
		return ErrFDOutOfRange
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	info, ok := x.handles[fd]
	if !ok || info.kind != handleFD {
		return ErrFDNotRegistered
	}

	delete(x.handles, fd)

	if x.closed.Load() {
		return nil
	}
	return x.backend.remove(fd, info.events)
}

// Poll blocks until at least one registered source is ready, the timeout
// elapses, or the wait is interrupted, filling events, and returning the
// number filled. A negative timeout blocks indefinitely. An interrupted wait
// returns (0, nil).
//
// Each waker is reported at most once per call, no matter how many times it
// was woken since the last Poll.
func (x *Poller) Poll(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, ErrNoEventCapacity
	}

	x.pollMu.Lock()
	defer x.pollMu.Unlock()

	if x.closed.Load() {
		return 0, ErrPollerClosed
	}

	var n int
	err := x.backend.wait(len(events), timeoutToMs(timeout), func(id int, ready IOEvents) {
		x.mu.RLock()
		info, ok := x.handles[id]
		if ok && info.kind != handleFD {
			// drained under the lock, the fd can't be closed (and recycled) meanwhile
			x.backend.drainWake(id)
			if info.kind == handleWaker {
				// drain THEN clear pending, see Waker.Wake
				info.waker.pending.Store(false)
			}
		}
		x.mu.RUnlock()

		switch {
		case !ok, info.kind == handleInternal:
			return
		case info.kind == handleWaker:
			ready = EventRead
		default:
			ready &= info.events | EventError | EventHangup
			if ready == 0 {
				return
			}
		}

		events[n] = Event{Token: info.token, Events: ready}
		n++
	})
	if err != nil {
		return 0, err
	}

	return n, nil
}

// timeoutToMs converts a timeout to milliseconds, rounding up, so that a
// small positive timeout doesn't become a busy loop.
func timeoutToMs(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	if timeout > time.Duration(math.MaxInt32)*time.Millisecond {
		return math.MaxInt32
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
