package worker

import (
	"github.com/okian/fundora/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithShards sets how many single-worker shards the pool runs.
func WithShards(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.shardCount = n
		}
	}
}

// WithQueueSize sets the pending-job capacity of each shard.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithPoolLogger sets the pool logger.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
