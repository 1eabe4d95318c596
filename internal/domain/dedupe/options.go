package dedupe

// Option configures the in-memory index.
type Option func(*memoryIndex)

// WithMaxSize bounds the number of claims kept in memory. The oldest claim
// is evicted when the bound is reached. Zero or negative means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(x *memoryIndex) {
		x.maxSize = maxSize
	}
}

// WithOnEvict registers fn to run when a claim is evicted to make room.
// fn runs synchronously inside Claim while the index lock is held, so it
// must not call back into the index.
func WithOnEvict(fn func(key, ref string)) Option {
	return func(x *memoryIndex) {
		x.onEvict = fn
	}
}
