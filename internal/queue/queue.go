// Package queue provides a per-key FIFO serialization primitive. Screens that
// are edited by many concurrent events funnel every invocation for one
// document through a single queue, collapsing read-modify-write races into a
// strict sequence.
package queue

import (
	"context"
	"fmt"
	"sync"
)

// Call is one unit of queued work.
type Call func(ctx context.Context) error

// ErrorSink observes errors swallowed while draining a key's queue.
type ErrorSink func(key string, err error)

// Queue serializes calls per key: at most one call executes for a given key
// at any instant, all others wait in arrival order. Entries are removed once
// drained, so idle keys cost nothing.
type Queue struct {
	mu      sync.Mutex
	entries map[string]*entry

	report ErrorSink
	// propagate selects errors that signal programming defects. A matching
	// error is returned to the draining caller instead of being swallowed;
	// the drain still continues so a faulting call never blocks the rest of
	// the queue.
	propagate func(error) bool
}

type entry struct {
	running bool
	pending []pendingCall
}

type pendingCall struct {
	ctx  context.Context
	call Call
}

// New builds a queue. report may be nil; propagate may be nil to swallow all
// errors.
func New(report ErrorSink, propagate func(error) bool) *Queue {
	return &Queue{
		entries:   make(map[string]*entry),
		report:    report,
		propagate: propagate,
	}
}

// Enqueue appends call to key's queue. If no call is executing for key, the
// calling goroutine drains the queue before returning, including calls other
// goroutines append meanwhile. The returned error is the last propagate-
// matched error seen during that drain; enqueuing onto a running key always
// returns nil.
func (q *Queue) Enqueue(ctx context.Context, key string, call Call) error {
	q.mu.Lock()
	e := q.entries[key]
	if e == nil {
		e = &entry{}
		q.entries[key] = e
	}
	e.pending = append(e.pending, pendingCall{ctx: ctx, call: call})
	if e.running {
		q.mu.Unlock()
		return nil
	}
	e.running = true
	q.mu.Unlock()
	return q.drain(key)
}

// Depth reports the total number of pending calls across all keys.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, e := range q.entries {
		n += len(e.pending)
	}
	return n
}

func (q *Queue) drain(key string) error {
	var defect error
	for {
		q.mu.Lock()
		e := q.entries[key]
		if e == nil || len(e.pending) == 0 {
			delete(q.entries, key)
			q.mu.Unlock()
			return defect
		}
		next := e.pending[0]
		e.pending = e.pending[1:]
		q.mu.Unlock()

		if err := q.run(next); err != nil {
			if q.propagate != nil && q.propagate(err) {
				defect = err
			} else if q.report != nil {
				q.report(key, err)
			}
		}
	}
}

func (q *Queue) run(pc pendingCall) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queued call panicked: %v", r)
		}
	}()
	return pc.call(pc.ctx)
}
