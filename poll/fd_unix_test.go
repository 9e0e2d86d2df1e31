//go:build linux || darwin

package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	require.NoError(t, unix.SetNonblock(fds[0], true))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPoller_RegisterFD_levelTriggered(t *testing.T) {
	p := newTestPoller(t)
	r, w := newTestPipe(t)

	require.NoError(t, p.Register(FD(r), 11, EventRead))

	events := make([]Event, 8)
	n, err := p.Poll(events, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)

	// reported until drained
	for i := 0; i < 2; i++ {
		n, err = p.Poll(events, time.Second)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.Equal(t, Token(11), events[0].Token)
		assert.True(t, events[0].Readable())
	}

	var buf [8]byte
	_, err = unix.Read(r, buf[:])
	require.NoError(t, err)

	n, err = p.Poll(events, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPoller_ModifyFD_token(t *testing.T) {
	p := newTestPoller(t)
	r, w := newTestPipe(t)

	require.NoError(t, p.RegisterFD(r, 1, EventRead))
	assert.ErrorIs(t, p.RegisterFD(r, 1, EventRead), ErrFDAlreadyRegistered)
	require.NoError(t, p.Reregister(FD(r), 2, EventRead))

	_, err := unix.Write(w, []byte("x"))
	require.NoError(t, err)

	events := make([]Event, 8)
	n, err := p.Poll(events, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, Token(2), events[0].Token)

	require.NoError(t, p.Deregister(FD(r)))
	assert.ErrorIs(t, p.UnregisterFD(r), ErrFDNotRegistered)
	assert.ErrorIs(t, p.ModifyFD(r, 3, EventRead), ErrFDNotRegistered)

	n, err = p.Poll(events, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPoller_RegisterFD_outOfRange(t *testing.T) {
	p := newTestPoller(t)
	assert.ErrorIs(t, p.RegisterFD(-1, 0, EventRead), ErrFDOutOfRange)
	assert.ErrorIs(t, p.RegisterFD(maxFDLimit, 0, EventRead), ErrFDOutOfRange)
	assert.ErrorIs(t, p.ModifyFD(-1, 0, EventRead), ErrFDOutOfRange)
	assert.ErrorIs(t, p.UnregisterFD(-1), ErrFDOutOfRange)
}

func TestPoller_fdAndWaker(t *testing.T) {
	p := newTestPoller(t)
	r, w := newTestPipe(t)
	require.NoError(t, p.RegisterFD(r, 1, EventRead))
	wk, err := p.NewWaker(2)
	require.NoError(t, err)
	defer wk.Close()

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, wk.Wake())

	events := make([]Event, 8)
	seen := make(map[Token]bool)
	deadline := time.Now().Add(time.Second)
	for len(seen) < 2 && time.Now().Before(deadline) {
		n, err := p.Poll(events, 100*time.Millisecond)
		require.NoError(t, err)
		for _, ev := range events[:n] {
			seen[ev.Token] = true
		}
	}
	assert.Equal(t, map[Token]bool{1: true, 2: true}, seen)
}

func TestPoller_closed_fd(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	r, _ := newTestPipe(t)
	require.NoError(t, p.RegisterFD(r, 1, EventRead))
	require.NoError(t, p.Close())

	assert.ErrorIs(t, p.RegisterFD(r, 1, EventRead), ErrPollerClosed)
	assert.ErrorIs(t, p.ModifyFD(r, 1, EventRead), ErrPollerClosed)
	// bookkeeping only, after close
	assert.NoError(t, p.UnregisterFD(r))
}
