// Package mainqueue runs work one item at a time on a single goroutine,
// the way a UI toolkit runs everything on its main thread.
package mainqueue

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"perfect-volume-control/internal/logging"
)

// ErrStopped is returned by Sync when the queue loop has exited.
var ErrStopped = errors.New("main queue stopped")

// Queue serializes submitted functions. Async never blocks, so work may be
// posted from inside a running item without deadlocking the loop.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	started bool

	wake    chan struct{}
	stopped chan struct{}
}

// New creates an idle queue. Call Start to begin processing.
func New() *Queue {
	return &Queue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Start launches the processing loop until ctx is cancelled.
// Only the first call has an effect.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.loop(ctx)
}

func (q *Queue) loop(ctx context.Context) {
	defer close(q.stopped)
	for {
		if ctx.Err() != nil {
			return
		}
		if fn, ok := q.next(); ok {
			q.call(fn)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	fn := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return fn, true
}

// call runs fn and recovers from a panic so one bad item cannot stop the loop.
func (q *Queue) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("main queue item panicked: %v\n%s", r, debug.Stack())
		}
	}()
	fn()
}

// Async enqueues fn and returns immediately.
func (q *Queue) Async(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Item claim states for Sync.
const (
	itemPending int32 = iota
	itemRunning
	itemCancelled
)

// Sync enqueues fn and waits for it to finish.
// An error means fn never ran: once fn has started, Sync waits for it
// even if ctx expires meanwhile.
// It must not be called from an item already running on the queue.
func (q *Queue) Sync(ctx context.Context, fn func()) error {
	select {
	case <-q.stopped:
		return ErrStopped
	default:
	}

	var claim atomic.Int32
	done := make(chan struct{})
	q.Async(func() {
		if !claim.CompareAndSwap(itemPending, itemRunning) {
			return
		}
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if claim.CompareAndSwap(itemPending, itemCancelled) {
			return ctx.Err()
		}
		<-done
		return nil
	case <-q.stopped:
		if claim.CompareAndSwap(itemPending, itemCancelled) {
			return ErrStopped
		}
		<-done
		return nil
	}
}

// Stopped is closed once the loop has exited.
func (q *Queue) Stopped() <-chan struct{} {
	return q.stopped
}

// Len returns the number of items waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
