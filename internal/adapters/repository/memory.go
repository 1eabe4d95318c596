package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/fundora/internal/domain/dedupe"
	"github.com/okian/fundora/internal/domain/model"
)

// MemoryStore keeps events in process. Claims live in a dedupe.Index; when
// the index evicts a claim to stay within its bound, the key becomes free
// again and FindByClaim stops resolving it. Evicted claims keep their events
// for FindRecent and Counts.
type MemoryStore struct {
	mu      sync.RWMutex
	claims  dedupe.Index
	events  []model.InteractionEvent
	byClaim map[string][]int
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore(opts ...dedupe.Option) *MemoryStore {
	s := &MemoryStore{byClaim: make(map[string][]int)}
	// Eviction happens inside Claim, which Insert calls with s.mu held.
	opts = append(slices.Clip(opts), dedupe.WithOnEvict(func(key, _ string) {
		delete(s.byClaim, key)
	}))
	s.claims = dedupe.NewIndex(opts...)
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, claim Claim, events []model.InteractionEvent) (err error) {
	defer func(start time.Time) { observe(DriverMemory, "insert", start, err) }(time.Now())
	if err := validInsert(claim, events); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims.Claim(ctx, claim.Key, claim.Ref); !ok {
		return ErrConflict
	}

	idx := make([]int, 0, len(events))
	for _, e := range events {
		idx = append(idx, len(s.events))
		s.events = append(s.events, e)
	}
	s.byClaim[claim.Key] = idx
	return nil
}

func (s *MemoryStore) FindRecent(_ context.Context, q Query) ([]model.InteractionEvent, error) {
	defer observe(DriverMemory, "find_recent", time.Now(), nil)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.InteractionEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.ActorID != q.ActorID || e.Kind != q.Kind || e.OccurredAt.Before(q.Since) {
			continue
		}
		if q.SubjectID != "" && e.SubjectID != q.SubjectID {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b model.InteractionEvent) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})
	return out, nil
}

func (s *MemoryStore) FindByClaim(ctx context.Context, key string) ([]model.InteractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, held := s.claims.Lookup(ctx, key); !held {
		return nil, ErrClaimNotFound
	}
	idx := s.byClaim[key]
	out := make([]model.InteractionEvent, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *MemoryStore) Counts(_ context.Context, subjectID string, kind model.InteractionKind, since time.Time) (model.InteractionCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c model.InteractionCounts
	actors := make(map[string]struct{})
	for _, e := range s.events {
		if e.SubjectID != subjectID || e.Kind != kind {
			continue
		}
		c.Total++
		actors[e.ActorID] = struct{}{}
		if !e.OccurredAt.Before(since) {
			c.Recent++
		}
	}
	c.DistinctActors = len(actors)
	return c, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Claims returns the number of claims currently held.
func (s *MemoryStore) Claims() int64 {
	return s.claims.Size()
}

func (s *MemoryStore) Close() error { return nil }
