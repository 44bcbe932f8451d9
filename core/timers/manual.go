package timers

import (
	"sync"
	"time"
)

// Manual is a deterministic [Scheduler]. Timers only fire from [Manual.Advance],
// synchronously and in deadline order.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{owner: m, deadline: m.now + d, seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d and fires every timer that becomes
// due, including timers scheduled by callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.deadline
		next.fired = true
		m.removeLocked(next)
		f := next.f
		m.mu.Unlock()

		f()
	}
}

// Pending returns the number of timers that are scheduled and not stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Elapsed returns how far the clock was advanced in total.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) nextDueLocked(target time.Duration) *manualTimer {
	var next *manualTimer
	for _, t := range m.timers {
		if t.deadline > target {
			continue
		}
		if next == nil || t.deadline < next.deadline || (t.deadline == next.deadline && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *Manual) removeLocked(target *manualTimer) {
	for i, t := range m.timers {
		if t == target {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

type manualTimer struct {
	owner    *Manual
	deadline time.Duration
	seq      uint64
	f        func()
	fired    bool
	stopped  bool
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	t.owner.removeLocked(t)
	return true
}
