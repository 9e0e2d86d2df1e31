package pollchan_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/joeycumines/go-pollchan"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func ExampleSendError() {
	tx, rx, err := pollchan.New[string]()
	if err != nil {
		panic(err)
	}
	defer tx.Close()

	_ = rx.Close()

	err = tx.Send("hello")
	var sendErr *pollchan.SendError[string]
	if errors.As(err, &sendErr) {
		fmt.Println(sendErr.Value, errors.Is(err, pollchan.ErrDisconnected))
	}

	//output:
	//hello true
}

func ExampleNewBounded() {
	tx, rx, err := pollchan.NewBounded[int](2)
	if err != nil {
		panic(err)
	}
	defer rx.Close()

	for i := 1; i <= 3; i++ {
		if err := tx.Send(i); err != nil {
			fmt.Println(err)
		}
	}
	_ = tx.Close()

	for {
		v, err := rx.TryRecv()
		if err != nil {
			fmt.Println(err)
			break
		}
		fmt.Println(v)
	}

	//output:
	//pollchan: send failed: pollchan: channel full
	//1
	//2
	//pollchan: channel disconnected
}

func ExampleWithLogger() {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelDebug),
	)

	tx, rx, err := pollchan.New[int](pollchan.WithLogger(logger.Logger()))
	if err != nil {
		panic(err)
	}
	_ = tx.Close()
	_ = rx.Close()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		// each line is a JSON object, e.g.
		// {"lvl":"debug","channel":"1","msg":"channel created"}
		i := strings.Index(line, `"msg":`)
		fmt.Println(line[i:])
	}

	//output:
	//"msg":"channel created"}
	//"msg":"all senders closed"}
	//"msg":"channel released"}
}
