package session

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// RoundTimer is the single local countdown. Starting it replaces any running
// countdown, so at most one ticker exists at a time.
type RoundTimer struct {
	clock  clockwork.Clock
	events chan<- Event
	ticker clockwork.Ticker
	stop   chan struct{}
}

func NewRoundTimer(clock clockwork.Clock, events chan<- Event) *RoundTimer {
	return &RoundTimer{clock: clock, events: events}
}

// Start begins a countdown whose ticks carry gen.
func (t *RoundTimer) Start(gen uint64) {
	t.Stop()
	stop := make(chan struct{})
	ticker := t.clock.NewTicker(time.Second)
	t.stop, t.ticker = stop, ticker

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				select {
				case t.events <- Tick{Generation: gen}:
				case <-stop:
					return
				}
			}
		}
	}()
}

// Stop tears the countdown down. A tick already in flight may still be
// delivered; receivers drop it by generation.
func (t *RoundTimer) Stop() {
	if t.stop == nil {
		return
	}
	t.ticker.Stop()
	close(t.stop)
	t.stop, t.ticker = nil, nil
}

func (t *RoundTimer) Running() bool { return t.stop != nil }
