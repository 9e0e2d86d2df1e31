//go:build windows

package poll

import (
	"errors"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/windows"
)

// fastPoller manages wake-up delivery using IOCP (Windows).
//
// IOCP reports completions rather than readiness, so raw fd registration is
// unsupported. Wakers are identified by a completion key, and woken using
// PostQueuedCompletionStatus, the standard wake-up mechanism for IOCP.
type fastPoller struct { // betteralign:ignore
	_      [sizeOfCacheLine]byte // Cache line padding //nolint:unused
	iocp   windows.Handle        // IOCP handle
	nextID atomic.Int64          // completion keys for wakers, 0 is unused
}

// init initializes the IOCP instance.
func (p *fastPoller) init(int) error {
	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return err
	}
	p.iocp = iocp
	return nil
}

// close closes the IOCP instance.
func (p *fastPoller) close() error {
	if p.iocp != 0 {
		return windows.CloseHandle(p.iocp)
	}
	return nil
}

func (p *fastPoller) add(int, IOEvents) error {
	return errors.ErrUnsupported
}

func (p *fastPoller) modify(int, IOEvents, IOEvents) error {
	return errors.ErrUnsupported
}

func (p *fastPoller) remove(int, IOEvents) error {
	return errors.ErrUnsupported
}

// wait blocks for the first completion (up to the timeout), then collects
// any others that are immediately available, up to limit.
func (p *fastPoller) wait(limit int, timeoutMs int, dispatch func(id int, events IOEvents)) error {
	timeout := uint32(windows.INFINITE)
	if timeoutMs >= 0 {
		timeout = uint32(timeoutMs)
	}

	for i := 0; i < limit; i++ {
		var bytes uint32
		var key uintptr
		var overlapped *windows.Overlapped

		err := windows.GetQueuedCompletionStatus(p.iocp, &bytes, &key, &overlapped, timeout)
		if err != nil {
			if errno, ok := err.(syscall.Errno); ok {
				if errno == windows.WAIT_TIMEOUT {
					return nil
				}
				if errno == windows.ERROR_ABANDONED_WAIT_0 || errno == windows.ERROR_INVALID_HANDLE {
					return ErrPollerClosed
				}
			}
			return err
		}

		if overlapped == nil && key != 0 {
			dispatch(int(key), EventRead)
		}

		// only the first wait blocks
		timeout = 0
	}

	return nil
}

// newWake allocates a completion key, used as both read and write ids.
func (p *fastPoller) newWake() (int, int, error) {
	id := int(p.nextID.Add(1))
	return id, id, nil
}

func (p *fastPoller) addWake(int) error { return nil }

func (p *fastPoller) removeWake(int) error { return nil }

func (p *fastPoller) wake(id int) error {
	return windows.PostQueuedCompletionStatus(p.iocp, 0, uintptr(id), nil)
}

// drainWake is a no-op, each completion packet is consumed by wait.
func (p *fastPoller) drainWake(int) {}

func (p *fastPoller) closeWake(int, int) error { return nil }
