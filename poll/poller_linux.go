//go:build linux

package poll

import (
	"golang.org/x/sys/unix"
)

// fastPoller manages I/O event registration using epoll (Linux).
//
// Registration is level-triggered. Wakers are eventfds, which stay readable
// until drained by the poller.
type fastPoller struct { // betteralign:ignore
	_        [sizeOfCacheLine]byte // Cache line padding //nolint:unused
	epfd     int32                 // epoll file descriptor
	_        [sizeOfCacheLine - 4]byte
	eventBuf []unix.EpollEvent // preallocated
}

// init initializes the epoll instance.
func (p *fastPoller) init(bufSize int) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	p.epfd = int32(epfd)
	p.eventBuf = make([]unix.EpollEvent, bufSize)
	return nil
}

// close closes the epoll instance.
func (p *fastPoller) close() error {
	if p.epfd > 0 {
		return unix.Close(int(p.epfd))
	}
	return nil
}

func (p *fastPoller) add(fd int, events IOEvents) error {
	ev := &unix.EpollEvent{
		Events: eventsToEpoll(events),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_ADD, fd, ev)
}

func (p *fastPoller) modify(fd int, _, events IOEvents) error {
	ev := &unix.EpollEvent{
		Events: eventsToEpoll(events),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_MOD, fd, ev)
}

func (p *fastPoller) remove(fd int, _ IOEvents) error {
	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
}

// wait polls for I/O events, calling dispatch for each.
// No lock is held during the wait.
func (p *fastPoller) wait(limit int, timeoutMs int, dispatch func(fd int, events IOEvents)) error {
	buf := p.eventBuf
	if limit < len(buf) {
		buf = buf[:limit]
	}

	n, err := unix.EpollWait(int(p.epfd), buf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return err
	}

	for i := 0; i < n; i++ {
		fd := int(buf[i].Fd)
		if fd < 0 {
			continue
		}
		dispatch(fd, epollToEvents(buf[i].Events))
	}

	return nil
}

// newWake creates an eventfd, returning it as both read and write ends.
func (p *fastPoller) newWake() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
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

func (p *fastPoller) closeWake(readFd, _ int) error {
	return unix.Close(readFd)
}

// eventsToEpoll converts IOEvents to epoll event flags.
func eventsToEpoll(events IOEvents) uint32 {
	var epollEvents uint32
	if events&EventRead != 0 {
		epollEvents |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if events&EventWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}

// epollToEvents converts epoll event flags to IOEvents.
func epollToEvents(epollEvents uint32) IOEvents {
	var events IOEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if epollEvents&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		events |= EventHangup
	}
	return events
}
