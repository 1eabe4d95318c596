package repository

import "github.com/okian/fundora/internal/domain/dedupe"

// Option configures Open.
type Option func(*options)

type options struct {
	indexOpts []dedupe.Option
	pool      PoolConfig
}

// WithClaimIndexSize bounds the claim index of the memory store.
func WithClaimIndexSize(n int) Option {
	return func(o *options) {
		o.indexOpts = append(o.indexOpts, dedupe.WithMaxSize(n))
	}
}

// WithPoolConfig tunes the Postgres connection pool.
func WithPoolConfig(cfg PoolConfig) Option {
	return func(o *options) {
		o.pool = cfg
	}
}
