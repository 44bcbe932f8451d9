// Package timers provides cancellable one-shot timers whose callbacks run on
// the owner's event loop instead of the runtime timer goroutine.
package timers

import (
	"sync/atomic"
	"time"
)

type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before its callback ran.
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Dispatcher hands f over to the goroutine that owns the timer state.
type Dispatcher func(f func())

type dispatchingScheduler struct {
	dispatch Dispatcher
}

// NewScheduler returns a scheduler backed by [time.AfterFunc] that delivers
// every fire through dispatch. A timer stopped from the dispatching goroutine
// never runs its callback, even when the fire was already handed over.
func NewScheduler(dispatch Dispatcher) Scheduler {
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &dispatchingScheduler{dispatch: dispatch}
}

func (s *dispatchingScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &dispatchedTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.dispatch(func() {
			if t.stopped.Load() {
				return
			}
			if !t.fired.CompareAndSwap(false, true) {
				return
			}
			f()
		})
	})
	return t
}

type dispatchedTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *dispatchedTimer) Stop() bool {
	if t == nil {
		return false
	}
	t.timer.Stop()
	if t.fired.Load() {
		return false
	}
	return t.stopped.CompareAndSwap(false, true)
}
