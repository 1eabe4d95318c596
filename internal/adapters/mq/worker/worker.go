// Package worker runs single-writer shards: every job submitted under the
// same key is executed by the same goroutine, in submission order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/fundora/internal/adapters/mq/queue"
	"github.com/okian/fundora/pkg/logger"
	"github.com/okian/fundora/pkg/metrics"
)

const (
	defaultQueueSize      = 1024
	metricsUpdateInterval = 5 * time.Second
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker executes queued jobs one at a time.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown waits for the worker loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	name   string
	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  q,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes jobs until the queue is closed and drained or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(j)
		}
	}
}

// Shutdown waits for Run to return. Close the queue first to let it drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "abandoned")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "job panicked",
				logger.String("key", j.Key),
				logger.Any("panic", r),
			)
		}
	}()
	j.Run(ctx)
}

type shard struct {
	queue  *queue.InMemoryQueue
	worker *InMemoryWorker
}

// Pool routes jobs to shards by key. Each shard has one queue and one
// worker, so jobs sharing a key never run concurrently.
type Pool struct {
	shardCount int
	queueSize  int
	shards     []shard

	mu      sync.RWMutex
	started bool
	stopped bool
	stop    chan struct{}

	logger logger.Logger
}

// NewPool creates a pool. It does not run jobs until Start is called.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		shardCount: runtime.NumCPU(),
		queueSize:  defaultQueueSize,
		stop:       make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.shards = make([]shard, p.shardCount)
	for i := range p.shards {
		q := queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize))
		p.shards[i] = shard{
			queue:  q,
			worker: NewInMemoryWorker(q, WithName("worker-"+strconv.Itoa(i))),
		}
	}

	metrics.UpdateWorkerCount(p.shardCount)
	metrics.UpdateQueueCapacity(p.shardCount * p.queueSize)
	metrics.UpdateQueueSize(0)
	return p
}

// Start launches one goroutine per shard.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for _, s := range p.shards {
		go s.worker.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

// ShardFor returns the shard index serving key.
func (p *Pool) ShardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.shards))) //nolint:gosec // shard count is small and positive
}

// Submit queues fn on the shard owning key. It returns ErrBackpressure when
// that shard is full and ErrStopped after Shutdown.
func (p *Pool) Submit(ctx context.Context, key string, fn func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch {
	case p.stopped:
		return ErrStopped
	case !p.started:
		return ErrNotStarted
	}

	err := p.shards[p.ShardFor(key)].queue.Enqueue(ctx, queue.Job{Key: key, Ctx: ctx, Run: fn})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrFull):
		return ErrBackpressure
	case errors.Is(err, queue.ErrClosed):
		return ErrStopped
	default:
		return err
	}
}

// Do submits fn and waits for it to finish or for ctx to end.
func (p *Pool) Do(ctx context.Context, key string, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	err := p.Submit(ctx, key, func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of pending jobs across shards.
func (p *Pool) Len() int {
	n := 0
	for _, s := range p.shards {
		n += s.queue.Len()
	}
	return n
}

// Shards returns the shard count.
func (p *Pool) Shards() int { return len(p.shards) }

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			metrics.UpdateQueueSize(p.Len())
		}
	}
}

// Shutdown stops intake, lets every shard drain its queue and waits for the
// workers to exit or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.stop)
	started := p.started
	p.mu.Unlock()

	for _, s := range p.shards {
		if err := s.queue.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	if !started {
		return nil
	}

	for i, s := range p.shards {
		if err := s.worker.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return err
		}
	}
	metrics.UpdateQueueSize(0)
	return nil
}
