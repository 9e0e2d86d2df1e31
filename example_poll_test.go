//go:build linux || darwin || windows

package pollchan_test

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-pollchan"
	"github.com/joeycumines/go-pollchan/poll"
)

func ExampleReceiver_Register() {
	const token poll.Token = 1

	tx, rx, err := pollchan.New[string]()
	if err != nil {
		panic(err)
	}
	defer rx.Close()

	p, err := poll.New()
	if err != nil {
		panic(err)
	}
	defer p.Close()

	// sent before registration, but still reported by the first poll
	_ = tx.Send("hello")

	if err := p.Register(rx, token, poll.EventRead); err != nil {
		panic(err)
	}

	go func() {
		defer tx.Close()
		_ = tx.Send("world")
	}()

	events := make([]poll.Event, 8)
	for {
		n, err := p.Poll(events, -1)
		if err != nil {
			panic(err)
		}
		for _, ev := range events[:n] {
			if ev.Token != token {
				continue
			}
			for {
				v, err := rx.TryRecv()
				if errors.Is(err, pollchan.ErrEmpty) {
					break
				}
				if err != nil {
					fmt.Println(err)
					return
				}
				fmt.Println(v)
			}
		}
	}

	//output:
	//hello
	//world
	//pollchan: channel disconnected
}
