package interaction

import (
	"time"

	"github.com/okian/fundora/pkg/logger"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the recorder logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

// WithViewWindow sets the trailing window in which repeated views are duplicates.
func WithViewWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.viewWindow = d
		}
	}
}

// WithComparisonWindow sets the default comparison dedup window.
func WithComparisonWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.comparisonWindow = d
		}
	}
}

// WithRecentWindow sets how far back analytics count "recent" interactions.
func WithRecentWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.recentWindow = d
		}
	}
}

// WithCacheTTL sets how long analytics stay cached. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(r *Recorder) {
		if d >= 0 {
			r.cacheTTL = d
		}
	}
}

// WithIDGenerator replaces the uuid-based id source.
func WithIDGenerator(next func() string) Option {
	return func(r *Recorder) {
		if next != nil {
			r.newID = next
		}
	}
}
