// Package queue serializes operations against one hub.
//
// Every hub owns one Queue. Operations run one at a time in the order they
// were submitted; operations on different queues are independent.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned when submitting to a closed Queue
var ErrClosed = errors.New("queue is closed")

type result struct {
	err      error
	panicked bool
	panicVal interface{}
}

type task struct {
	fn   func() error
	done chan result
}

// Queue is a FIFO queue with a single worker
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*task
	closed  bool
	stopped chan struct{}
}

// New creates a Queue and starts its worker
func New() *Queue {
	q := &Queue{stopped: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Do runs fn after every previously submitted operation has finished and
// returns its error unchanged. A panic in fn is re-raised in the caller.
func (q *Queue) Do(fn func() error) error {
	t := &task{fn: fn, done: make(chan result, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, t)
	q.cond.Signal()
	q.mu.Unlock()

	res := <-t.done
	if res.panicked {
		panic(res.panicVal)
	}
	return res.err
}

// Submit runs fn on q and returns its value and error
func Submit[T any](q *Queue, fn func() (T, error)) (T, error) {
	var value T
	err := q.Do(func() error {
		var err error
		value, err = fn()
		return err
	})
	return value, err
}

// Len returns the number of operations waiting to run
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting operations. Operations already submitted still run;
// Close returns once they have.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		t.done <- invoke(t.fn)
	}
}

func invoke(fn func() error) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{panicked: true, panicVal: r}
		}
	}()
	return result{err: fn()}
}
