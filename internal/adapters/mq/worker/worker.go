// Package worker drains the dispatch queue and writes events to the
// persistence service.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/quicktagger/internal/adapters/mq/queue"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/okian/quicktagger/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWriteTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Writer persists one event.
type Writer interface {
	InsertEvent(ctx context.Context, e model.Event) error
}

// Reporter learns the outcome of each write. It is called from the worker
// goroutine.
type Reporter interface {
	Written(ctx context.Context, j queue.Job)
	Failed(ctx context.Context, j queue.Job, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until the queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. Each job is written once; failures are
// reported, never retried.
type InMemoryWorker struct {
	queue        Queue
	writer       Writer
	reporter     Reporter
	name         string
	writeTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, r Reporter, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:        q,
		writer:       w,
		reporter:     r,
		name:         "worker",
		writeTimeout: defaultWriteTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.logger == nil {
		wk.logger = logger.Get().Named(wk.name)
	}
	return wk
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
			w.process(ctx, j)
		}
	}
}

// Shutdown signals the loop to stop and waits for it.
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
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	err := w.writer.InsertEvent(wctx, j.Event)
	cancel()
	metrics.RecordEventWriteLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordEventFailed()
		w.logger.Error(ctx, "event write failed",
			logger.String("match_id", j.Event.MatchID),
			logger.String("team_id", j.Event.TeamID),
			logger.String("event_type", j.Event.Type.String()),
			logger.Int("match_minute", j.Event.MatchMinute),
			logger.Error(err),
		)
		if w.reporter != nil {
			w.reporter.Failed(ctx, j, err)
		}
		return
	}

	metrics.RecordEventWritten(j.Event.Type.Category().String())
	if w.reporter != nil {
		w.reporter.Written(ctx, j)
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. workerCount below one is treated as one.
func NewPool(workerCount int, q Queue, w Writer, r Reporter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, w, r,
			append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...,
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(ctx)
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
