package loopz

import (
	"context"
	"testing"
	"time"
)

func TestSleep_DeadlineIsScheduleTimePlusDelay(t *testing.T) {
	s, _ := newTestScheduler()
	start := s.Now()

	var result any
	var calls int
	task := NewFiber("sleeper", func(aw *Await) (any, error) {
		return aw.Await(NewSleep(250 * time.Microsecond))
	})
	s.ScheduleFinalized(task, nil, captureFinal(&calls, &result))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	deadline := result.(Ticks)
	if d := TicksDiff(deadline, start); d != 250 {
		t.Errorf("expected deadline 250us after schedule time, got %d", d)
	}
}

func TestSleep_ZeroDelayIsYield(t *testing.T) {
	s, _ := newTestScheduler()
	start := s.Now()

	done := false
	task := NewFiber("yielder", func(aw *Await) (any, error) {
		if _, err := aw.Await(NewSleep(0)); err != nil {
			return nil, err
		}
		done = true
		return nil, nil
	})
	s.Schedule(task, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !done {
		t.Fatal("task never resumed")
	}
	if d := TicksDiff(s.Now(), start); d != 0 {
		t.Errorf("a zero-delay sleep advanced time by %dus", d)
	}
}

func TestSleep_SharedYieldInstance(t *testing.T) {
	// Yield keeps no per-call state; many tasks can await the same value.
	s, _ := newTestScheduler()
	resumed := 0
	for i := 0; i < 3; i++ {
		task := NewFiber("yielder", func(aw *Await) (any, error) {
			if _, err := aw.Await(Yield); err != nil {
				return nil, err
			}
			resumed++
			return nil, nil
		})
		s.Schedule(task, nil)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resumed != 3 {
		t.Errorf("expected 3 resumptions, got %d", resumed)
	}
}

func TestSleep_InterleavesWithOtherWork(t *testing.T) {
	s, _ := newTestScheduler()
	var order []string
	slow := NewFiber("slow", func(aw *Await) (any, error) {
		if _, err := aw.Await(NewSleep(3 * time.Millisecond)); err != nil {
			return nil, err
		}
		order = append(order, "slow")
		return nil, nil
	})
	fast := NewFiber("fast", func(aw *Await) (any, error) {
		for i := 0; i < 2; i++ {
			if _, err := aw.Await(NewSleep(time.Millisecond)); err != nil {
				return nil, err
			}
			order = append(order, "fast")
		}
		return nil, nil
	})
	s.Schedule(slow, nil)
	s.Schedule(fast, nil)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{"fast", "fast", "slow"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}
