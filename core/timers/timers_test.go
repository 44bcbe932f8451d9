package timers

import (
	"sync"
	"testing"
	"time"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual()
	fired := []string{}

	m.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "late") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "early") })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "early-second") })

	m.Advance(20 * time.Millisecond)
	if len(fired) != 2 || fired[0] != "early" || fired[1] != "early-second" {
		t.Fatalf("expected early timers in schedule order, got %v", fired)
	}

	m.Advance(10 * time.Millisecond)
	if len(fired) != 3 || fired[2] != "late" {
		t.Fatalf("expected late timer to fire, got %v", fired)
	}
	if got := m.Pending(); got != 0 {
		t.Fatalf("expected no pending timers, got %d", got)
	}
}

func TestManualStoppedTimerNeverFires(t *testing.T) {
	m := NewManual()
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatalf("expected first stop to report stopping the timer")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to report already stopped")
	}

	m.Advance(2 * time.Second)
	if fired {
		t.Fatalf("expected stopped timer not to fire")
	}
}

func TestManualFiresTimersScheduledByCallbacksWithinWindow(t *testing.T) {
	m := NewManual()
	fired := 0

	m.AfterFunc(10*time.Millisecond, func() {
		fired++
		m.AfterFunc(10*time.Millisecond, func() { fired++ })
	})

	m.Advance(25 * time.Millisecond)
	if fired != 2 {
		t.Fatalf("expected chained timer to fire in the same window, got %d fires", fired)
	}
	if got := m.Elapsed(); got != 25*time.Millisecond {
		t.Fatalf("expected elapsed 25ms, got %v", got)
	}
}

func TestSchedulerDispatchesFire(t *testing.T) {
	dispatched := make(chan func(), 1)
	s := NewScheduler(func(f func()) { dispatched <- f })

	fired := make(chan struct{}, 1)
	s.AfterFunc(time.Millisecond, func() { fired <- struct{}{} })

	select {
	case f := <-dispatched:
		f()
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for dispatched fire")
	}

	select {
	case <-fired:
	default:
		t.Fatalf("expected callback to run when dispatched function runs")
	}
}

func TestSchedulerStopAfterDispatchSuppressesCallback(t *testing.T) {
	var mu sync.Mutex
	var pending func()
	handedOver := make(chan struct{})
	s := NewScheduler(func(f func()) {
		mu.Lock()
		pending = f
		mu.Unlock()
		close(handedOver)
	})

	fired := false
	timer := s.AfterFunc(time.Millisecond, func() { fired = true })

	select {
	case <-handedOver:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fire to be handed over")
	}

	if !timer.Stop() {
		t.Fatalf("expected stop to win over a fire that has not run yet")
	}

	mu.Lock()
	pending()
	mu.Unlock()

	if fired {
		t.Fatalf("expected stopped timer callback to be suppressed")
	}
}
