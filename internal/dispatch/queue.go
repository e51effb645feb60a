package dispatch

import (
	"sync"

	"github.com/nerrad/warnbridge/internal/pipeline"
)

// queue is a bounded, drop-oldest FIFO of pipeline.Job. A full enqueue
// discards the oldest queued Job rather than blocking the caller, so the
// ingest path never waits on a slow or stuck target.
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []pipeline.Job
	capacity int
	closed   bool
}

func newQueue(capacity int) *queue {
	q := &queue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// enqueue appends job to the tail, dropping the oldest queued Job first
// if the queue is already at capacity. Returns the dropped Job and true
// if one was discarded.
func (q *queue) enqueue(job pipeline.Job) (dropped pipeline.Job, didDrop bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return pipeline.Job{}, false
	}

	if len(q.items) >= q.capacity {
		dropped = q.items[0]
		q.items = q.items[1:]
		didDrop = true
	}
	q.items = append(q.items, job)
	q.cond.Signal()
	return dropped, didDrop
}

// dequeue blocks until a Job is available or the queue is closed and
// drained, in which case ok is false.
func (q *queue) dequeue() (job pipeline.Job, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return pipeline.Job{}, false
	}
	job = q.items[0]
	q.items = q.items[1:]
	return job, true
}

// len reports the number of Jobs currently queued.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close marks the queue closed; once drained, dequeue returns ok=false.
// New enqueue calls after close are silently dropped.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// drainAndAbandon forcibly empties the queue and closes it, returning the
// number of Jobs abandoned.
func (q *queue) drainAndAbandon() int {
	q.mu.Lock()
	abandoned := len(q.items)
	q.items = nil
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	return abandoned
}
