package exam

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerHandle cancels a recurring scheduled callback. Cancel is
// idempotent; cancelling twice is safe. A callback that was already
// dequeued when Cancel ran may still execute once, which is why the
// controller re-checks handle identity under the session lock before
// applying a tick.
type TimerHandle interface {
	Cancel()
}

// Scheduler runs a callback at a fixed period until the returned handle
// is cancelled. Implementations must not invoke the callback before
// Schedule has returned.
type Scheduler interface {
	Schedule(period time.Duration, fn func()) TimerHandle
}

// ClockScheduler schedules callbacks on a clockwork clock. Production
// wiring passes clockwork.NewRealClock(); tests pass a FakeClock.
type ClockScheduler struct {
	clock clockwork.Clock
}

// NewClockScheduler creates a scheduler backed by the given clock.
func NewClockScheduler(clock clockwork.Clock) *ClockScheduler {
	return &ClockScheduler{clock: clock}
}

// Schedule starts a ticker goroutine that invokes fn once per period.
func (s *ClockScheduler) Schedule(period time.Duration, fn func()) TimerHandle {
	ticker := s.clock.NewTicker(period)
	h := &tickerHandle{ticker: ticker, done: make(chan struct{})}

	go func() {
		for {
			select {
			case <-ticker.Chan():
				fn()
			case <-h.done:
				return
			}
		}
	}()

	return h
}

type tickerHandle struct {
	ticker clockwork.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}
