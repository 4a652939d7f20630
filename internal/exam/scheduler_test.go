package exam

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestClockSchedulerFiresPerPeriod(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewClockScheduler(clock)

	fired := make(chan struct{}, 10)
	handle := s.Schedule(time.Second, func() {
		fired <- struct{}{}
	})
	defer handle.Cancel()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitFired(t, fired)

	clock.Advance(time.Second)
	waitFired(t, fired)
}

func TestClockSchedulerCancelStopsCallbacks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewClockScheduler(clock)

	fired := make(chan struct{}, 10)
	handle := s.Schedule(time.Second, func() {
		fired <- struct{}{}
	})

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitFired(t, fired)

	handle.Cancel()
	// Cancel is idempotent.
	handle.Cancel()

	clock.Advance(5 * time.Second)
	select {
	case <-fired:
		t.Fatal("callback fired after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(time.Second):
		require.FailNow(t, "callback did not fire in time")
	}
}
