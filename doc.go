// Package pollchan provides a multi-producer, single-consumer channel, the
// receiving half of which is a pollable readiness source.
//
// Unlike a Go channel, a pollchan [Receiver] can be registered with a
// [poll.Poller], alongside file descriptors and other sources, so a single
// goroutine can wait on all of them at once. Producers never block, and never
// take a lock.
//
// # Usage
//
//	tx, rx, err := pollchan.New[string]()
//	if err != nil {
//	    return err
//	}
//	defer rx.Close()
//
//	p, err := poll.New()
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	if err := p.Register(rx, 1, poll.EventRead); err != nil {
//	    return err
//	}
//
//	go func() {
//	    defer tx.Close()
//	    _ = tx.Send("hello")
//	}()
//
//	events := make([]poll.Event, 16)
//	for {
//	    n, err := p.Poll(events, -1)
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range events[:n] {
//	        if ev.Token != 1 {
//	            continue
//	        }
//	        for {
//	            v, err := rx.TryRecv()
//	            if errors.Is(err, pollchan.ErrEmpty) {
//	                break
//	            }
//	            if err != nil {
//	                return nil // disconnected
//	            }
//	            fmt.Println(v)
//	        }
//	    }
//	}
//
// # Readiness
//
// Each channel has a readiness flag (see [Readiness]), which is Ready while
// values are available, or while the hang-up of the last Sender is yet to be
// observed. A registered poller is notified exactly once per Empty→Ready
// transition, no matter how many producers race to cause it. The consumer
// must therefore receive until [ErrEmpty] (or [ErrDisconnected]) after each
// event, which clears the flag, and re-arms notification.
//
// Registration is the one exception: registering a receiver that is already
// ready causes it to be reported immediately, so values sent before
// registration are never missed.
//
// # Ordering
//
// Values from a single Sender are always received in the order they were
// sent. See [New] and [NewBounded] for the guarantees across Senders.
//
// # Lifecycle
//
// Go has no destructors, so every [Sender] and the [Receiver] must be closed.
// Closing the last Sender disconnects the channel (the Receiver drains the
// remaining values, then gets [ErrDisconnected]), and closing the Receiver
// causes further sends to fail with a [SendError], which returns the value.
package pollchan
