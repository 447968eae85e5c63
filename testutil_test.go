package loopz

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// advancePoller stands in for the I/O driver in tests: instead of sleeping
// out a poll timeout it advances the fake clock by it, so timed behavior is
// deterministic and instant.
type advancePoller struct {
	clock *clockz.FakeClock
}

func (p *advancePoller) Poll(_ context.Context, _ []Iface, timeout time.Duration) (Event, bool, error) {
	if timeout > 0 {
		p.clock.Advance(timeout)
	}
	return Event{}, false, nil
}

// scriptPoller delivers a fixed sequence of driver events. Like a real
// driver it inspects the watched interfaces and only fires when a task is
// actually listening; otherwise it degrades to advancing the clock.
type scriptPoller struct {
	clock  *clockz.FakeClock
	events []Event
}

func (p *scriptPoller) Poll(_ context.Context, ifaces []Iface, timeout time.Duration) (Event, bool, error) {
	if len(p.events) > 0 {
		ev := p.events[0]
		for _, iface := range ifaces {
			if iface == ev.Iface {
				p.events = p.events[1:]
				return ev, true, nil
			}
		}
	}
	if timeout > 0 {
		p.clock.Advance(timeout)
	}
	return Event{}, false, nil
}

func newTestScheduler() (*Scheduler, *clockz.FakeClock) {
	clock := clockz.NewFakeClock()
	s := New().WithClock(clock)
	s.WithPoller(&advancePoller{clock: clock})
	return s, clock
}

// captureFinal returns a finalizer that records its calls.
func captureFinal(calls *int, result *any) Finalizer {
	return func(_ Task, r any) {
		*calls++
		*result = r
	}
}
