package orchestration

import (
	"sync"
	"sync/atomic"
	"time"
)

type loopItem struct {
	name     string
	f        func()
	queuedAt time.Time
}

// eventLoop runs posted functions one at a time, in posting order, on a
// single goroutine. The mailbox is unbounded so posting never blocks an
// engine callback.
type eventLoop struct {
	mu    sync.Mutex
	items []loopItem
	wake  chan struct{}

	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once
	started   atomic.Bool

	// onPanic is called on the loop goroutine with whatever a posted function
	// panicked with.
	onPanic func(name string, recovered any)
	// maxQueueDelay is the longest wait between posting and running seen so far.
	maxQueueDelay atomic.Int64
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// post queues f. Functions posted before start run once the loop starts.
func (l *eventLoop) post(name string, f func()) bool {
	if l.isClosed() {
		return false
	}

	l.mu.Lock()
	l.items = append(l.items, loopItem{name: name, f: f, queuedAt: time.Now()})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// postFirst queues f ahead of everything already posted.
func (l *eventLoop) postFirst(name string, f func()) bool {
	if l.isClosed() {
		return false
	}

	l.mu.Lock()
	l.items = append([]loopItem{{name: name, f: f, queuedAt: time.Now()}}, l.items...)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *eventLoop) start() (started bool) {
	if l.isClosed() {
		return false
	}

	l.startOnce.Do(func() {
		started = true
		l.started.Store(true)
		go l.run()
		// items posted before start
		select {
		case l.wake <- struct{}{}:
		default:
		}
	})
	return started
}

func (l *eventLoop) run() {
	defer close(l.done)

	for {
		select {
		case <-l.closeCh:
			return
		case <-l.wake:
			for {
				item, ok := l.next()
				if !ok {
					break
				}
				if l.isClosed() {
					return
				}
				l.runItem(item)
			}
		}
	}
}

func (l *eventLoop) next() (loopItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return loopItem{}, false
	}
	item := l.items[0]
	l.items[0] = loopItem{}
	l.items = l.items[1:]
	return item, true
}

func (l *eventLoop) runItem(item loopItem) {
	delay := int64(time.Since(item.queuedAt))
	for {
		current := l.maxQueueDelay.Load()
		if delay <= current || l.maxQueueDelay.CompareAndSwap(current, delay) {
			break
		}
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("event loop function panicked", "name", item.name, "panic", recovered)
			if l.onPanic != nil {
				l.onPanic(item.name, recovered)
			}
		}
	}()
	item.f()
}

// end stops the loop. Queued functions that have not run yet are dropped.
func (l *eventLoop) end() {
	l.endOnce.Do(func() {
		close(l.closeCh)
	})
}

func (l *eventLoop) wait() {
	if l.started.Load() {
		<-l.done
	}
}

func (l *eventLoop) isClosed() bool {
	select {
	case <-l.closeCh:
		return true
	default:
		return false
	}
}

func (l *eventLoop) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
