// Package queue holds fetch jobs waiting for a worker.
//
// Jobs are small closures (one upstream fetch for one legislator or one roll
// call). The queue is bounded; a stage enqueues everything it needs, closes
// the queue and lets the worker pool drain it.
package queue

import (
	"context"
	"sync"

	"github.com/okian/civicrank/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Job is one unit of fetch work.
type Job struct {
	// Key identifies the job in logs, e.g. a bioguide id or roll call key.
	Key string
	// Do performs the work. A returned error is logged and counted.
	Do func(ctx context.Context) error
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed when the job was not added.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel of jobs, closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of queued jobs.
	Len() int

	// Close stops accepting jobs.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		return ErrFull
	}
}

// Dequeue returns a channel that receives jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Queued jobs are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
