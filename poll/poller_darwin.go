//go:build darwin

package poll

import (
	"golang.org/x/sys/unix"
)

// fastPoller manages I/O event registration using kqueue (Darwin).
//
// Registration is level-triggered. Wakers are non-blocking pipes, the read
// end of which stays readable until drained by the poller.
type fastPoller struct { // betteralign:ignore
	_        [sizeOfCacheLine]byte // Cache line padding //nolint:unused
	kq       int32                 // kqueue file descriptor
	_        [sizeOfCacheLine - 4]byte
	eventBuf []unix.Kevent_t // preallocated
}

// init initializes the kqueue instance.
func (p *fastPoller) init(bufSize int) error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	unix.CloseOnExec(kq)
	p.kq = int32(kq)
	p.eventBuf = make([]unix.Kevent_t, bufSize)
	return nil
}

// close closes the kqueue instance.
func (p *fastPoller) close() error {
	if p.kq > 0 {
		return unix.Close(int(p.kq))
	}
	return nil
}

func (p *fastPoller) add(fd int, events IOEvents) error {
	kevents := eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE)
	if len(kevents) == 0 {
		return nil
	}
	_, err := unix.Kevent(int(p.kq), kevents, nil, nil)
	return err
}

func (p *fastPoller) modify(fd int, oldEvents, events IOEvents) error {
	if oldEvents&^events != 0 {
		delKevents := eventsToKevents(fd, oldEvents&^events, unix.EV_DELETE)
		_, _ = unix.Kevent(int(p.kq), delKevents, nil, nil) // Ignore errors
	}
	if events&^oldEvents != 0 {
		addKevents := eventsToKevents(fd, events&^oldEvents, unix.EV_ADD|unix.EV_ENABLE)
		if _, err := unix.Kevent(int(p.kq), addKevents, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *fastPoller) remove(fd int, events IOEvents) error {
	kevents := eventsToKevents(fd, events, unix.EV_DELETE)
	if len(kevents) > 0 {
		_, _ = unix.Kevent(int(p.kq), kevents, nil, nil) // Ignore errors on delete
	}
	return nil
}

// wait polls for I/O events, calling dispatch for each.
func (p *fastPoller) wait(limit int, timeoutMs int, dispatch func(fd int, events IOEvents)) error {
	buf := p.eventBuf
	if limit < len(buf) {
		buf = buf[:limit]
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(int(p.kq), nil, buf, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		dispatch(int(buf[i].Ident), keventToEvents(&buf[i]))
	}

	return nil
}

// newWake creates a self-pipe, returning the read and write ends.
func (p *fastPoller) newWake() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])

	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return 0, 0, err
		}
	}

	return fds[0], fds[1], nil
}

func (p *fastPoller) addWake(fd int) error {
	return p.add(fd, EventRead)
}

func (p *fastPoller) removeWake(fd int) error {
	return p.remove(fd, EventRead)
}

func (p *fastPoller) wake(fd int) error {
	return writeWakeFd(fd)
}

func (p *fastPoller) drainWake(fd int) {
	drainWakeFd(fd)
}

func (p *fastPoller) closeWake(readFd, writeFd int) error {
	err := unix.Close(readFd)
	if writeFd != readFd {
		if err2 := unix.Close(writeFd); err == nil {
			err = err2
		}
	}
	return err
}

// eventsToKevents converts IOEvents to kqueue kevent structures.
func eventsToKevents(fd int, events IOEvents, flags uint16) []unix.Kevent_t {
	var kevents []unix.Kevent_t

	if events&EventRead != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}

	if events&EventWrite != 0 {
		kevents = append(kevents, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}

	return kevents
}

// keventToEvents converts kqueue event to IOEvents.
func keventToEvents(kev *unix.Kevent_t) IOEvents {
	var events IOEvents
	switch kev.Filter {
	case unix.EVFILT_READ:
		events |= EventRead
	case unix.EVFILT_WRITE:
		events |= EventWrite
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		events |= EventError
	}
	if kev.Flags&unix.EV_EOF != 0 {
		events |= EventHangup
	}
	return events
}
