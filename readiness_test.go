package pollchan

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadiness_String(t *testing.T) {
	for _, tc := range [...]struct {
		state    Readiness
		expected string
	}{
		{ReadinessEmpty, "Empty"},
		{ReadinessReady, "Ready"},
		{ReadinessClosed, "Closed"},
		{Readiness(99), "Unknown"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.state.String())
		})
	}
}

func TestReadinessFlag_transitions(t *testing.T) {
	var notified int
	x := &readinessFlag{notify: func() { notified++ }}

	assert.Equal(t, ReadinessEmpty, x.Load())

	assert.True(t, x.markReady())
	assert.False(t, x.markReady())
	assert.Equal(t, ReadinessReady, x.Load())
	assert.Equal(t, 1, notified)

	x.markEmpty(func() bool { return false })
	assert.Equal(t, ReadinessEmpty, x.Load())
	assert.Equal(t, 1, notified)

	// clearing an empty flag doesn't consult pending
	x.markEmpty(func() bool {
		t.Error("unexpected call")
		return true
	})

	assert.True(t, x.markClosed())
	assert.False(t, x.markClosed())
	assert.Equal(t, ReadinessClosed, x.Load())

	// terminal
	assert.False(t, x.markReady())
	x.markEmpty(func() bool { return true })
	assert.Equal(t, ReadinessClosed, x.Load())
	assert.Equal(t, 1, notified)
}

func TestReadinessFlag_markEmpty_recheck(t *testing.T) {
	var notified int
	x := &readinessFlag{notify: func() { notified++ }}
	x.markReady()

	// a push that landed between the consumer's pop and its clear
	x.markEmpty(func() bool { return true })

	assert.Equal(t, ReadinessReady, x.Load())
	assert.Equal(t, 2, notified)
}

func TestReadinessFlag_markReady_race(t *testing.T) {
	const goroutines = 64
	for round := 0; round < 100; round++ {
		var notified atomic.Int32
		x := &readinessFlag{notify: func() { notified.Add(1) }}

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			won   atomic.Int32
		)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if x.markReady() {
					won.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if notified.Load() != 1 || won.Load() != 1 {
			t.Fatalf("round %d: expected exactly one notification, got %d (winners %d)", round, notified.Load(), won.Load())
		}
	}
}
