// Package worker runs queued fetch jobs on a small fixed pool.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/civicrank/internal/adapters/mq/queue"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/okian/civicrank/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker runs jobs until its queue is drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	name    string
	onError func(key string, err error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Warn(ctx, "job failed", logger.String("key", j.Key), logger.Error(err))
				if w.onError != nil {
					w.onError(j.Key, err)
				}
			}
		}
	}
}

// Shutdown signals the worker and waits for it to stop.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Key, r)
		}
		if err != nil {
			metrics.RecordJobFailed()
			return
		}
		metrics.RecordJobDone()
	}()
	if j.Do == nil {
		return nil
	}
	return j.Do(ctx)
}

// Pool manages multiple workers on one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	alive   atomic.Int32
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers (at least one). opts apply to every worker.
func NewPool(workerCount int, q Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		metrics.UpdateWorkersAlive(int(p.alive.Add(1)))
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			defer func() { metrics.UpdateWorkersAlive(int(p.alive.Add(-1))) }()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue when it can be closed, stops every worker and
// waits for them up to ctx or a fixed timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Stats summarises a RunJobs call.
type Stats struct {
	Done   int
	Failed int
	// Errors maps failed job keys to their error.
	Errors map[string]error
}

// RunJobs enqueues jobs, runs them on workers workers and waits until every
// job has finished or ctx is done. Failed jobs are collected, never fatal.
// RunJobs installs its own error handler over any passed in opts.
func RunJobs(ctx context.Context, workers int, jobs []queue.Job, opts ...Option) Stats {
	stats := Stats{Errors: map[string]error{}}
	if len(jobs) == 0 {
		return stats
	}

	var done atomic.Int64
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(jobs)))
	for _, j := range jobs {
		do := j.Do
		j.Do = func(ctx context.Context) error {
			if do != nil {
				if err := do(ctx); err != nil {
					return err
				}
			}
			done.Add(1)
			return nil
		}
		if err := q.Enqueue(ctx, j); err != nil {
			stats.Failed++
			stats.Errors[j.Key] = err
		}
	}
	_ = q.Close()

	var mu sync.Mutex
	opts = append(opts, WithErrorHandler(func(key string, err error) {
		mu.Lock()
		stats.Errors[key] = err
		stats.Failed++
		mu.Unlock()
	}))

	p := NewPool(workers, q, opts...)
	p.Start(ctx)
	p.Wait()

	stats.Done = int(done.Load())
	return stats
}
