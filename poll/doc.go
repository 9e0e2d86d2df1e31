// Package poll provides a small readiness poller, in the style of mio: sources
// are registered with a caller-chosen [Token], and [Poller.Poll] reports which
// tokens are ready.
//
// # Sources
//
// Anything implementing [Source] may be registered. Raw file descriptors are
// adapted using [FD]. Sources that are not backed by a file descriptor (e.g.
// in-process queues) create a [Waker] at registration time, using
// [Poller.NewWaker], and call [Waker.Wake] when they become ready.
//
// # Platform Support
//
// I/O polling is implemented using platform-native mechanisms:
//   - Linux: epoll, wakers are eventfds
//   - Darwin: kqueue, wakers are self-pipes
//   - Windows: IOCP, wakers are completion packets (FD registration is
//     unsupported, and returns [errors.ErrUnsupported])
//
// # Usage
//
//	p, err := poll.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Register(poll.FD(fd), 1, poll.EventRead); err != nil {
//	    log.Fatal(err)
//	}
//
//	events := make([]poll.Event, 64)
//	for {
//	    n, err := p.Poll(events, -1)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, ev := range events[:n] {
//	        // handle ev.Token
//	    }
//	}
//
// # Safety
//
// Always deregister a file descriptor before closing it, to prevent stale
// event delivery due to FD recycling.
package poll
