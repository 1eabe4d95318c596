// Package dedupe builds interaction claim keys and holds them in a bounded
// in-memory uniqueness index.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/fundora/pkg/metrics"
)

// Index is a set of claimed keys, each pointing at the reference of the
// write that won it.
type Index interface {
	// Claim atomically records key -> ref unless key is already claimed.
	// When it is, the existing ref is returned with claimed=false.
	Claim(ctx context.Context, key, ref string) (existing string, claimed bool)

	// Lookup returns the ref holding key.
	Lookup(ctx context.Context, key string) (string, bool)

	Size() int64
}

type node struct {
	key        string
	ref        string
	prev, next *node
}

func (n *node) reset() {
	n.key, n.ref = "", ""
	n.prev, n.next = nil, nil
}

// memoryIndex keeps claims in a map plus an insertion-ordered list.
// With maxSize > 0 the oldest claim is evicted once the index is full;
// with maxSize <= 0 it grows without bound.
type memoryIndex struct {
	mu       sync.RWMutex
	claims   map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
	onEvict  func(key, ref string)
}

// NewIndex creates an in-memory claim index.
func NewIndex(opts ...Option) Index {
	idx := &memoryIndex{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.claims = make(map[string]*node)
	idx.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return idx
}

func (x *memoryIndex) Claim(_ context.Context, key, ref string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if n, ok := x.claims[key]; ok {
		return n.ref, false
	}

	if x.maxSize > 0 && len(x.claims) >= x.maxSize {
		x.evictOldest()
	}

	n := x.nodePool.Get().(*node)
	n.key, n.ref = key, ref
	n.next = x.head
	if x.head != nil {
		x.head.prev = n
	}
	x.head = n
	if x.tail == nil {
		x.tail = n
	}
	x.claims[key] = n

	metrics.UpdateDedupeIndexSize(x.size.Add(1))
	return ref, true
}

func (x *memoryIndex) Lookup(_ context.Context, key string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if n, ok := x.claims[key]; ok {
		return n.ref, true
	}
	return "", false
}

func (x *memoryIndex) Size() int64 {
	return x.size.Load()
}

// evictOldest must be called with x.mu held. The eviction hook runs
// before the key becomes claimable again.
func (x *memoryIndex) evictOldest() {
	n := x.tail
	if n == nil {
		return
	}
	key, ref := n.key, n.ref
	x.unlink(n)
	if x.onEvict != nil {
		x.onEvict(key, ref)
	}
}

// unlink must be called with x.mu held.
func (x *memoryIndex) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		x.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		x.tail = n.prev
	}
	delete(x.claims, n.key)
	n.reset()
	x.nodePool.Put(n)
	x.size.Add(-1)
}
