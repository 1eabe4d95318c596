// Package repository holds the interaction event stores and the subject
// catalog consumed by the analytics engine.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/metrics"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Claim is the uniqueness token guarding one recorded interaction. Key is
// built from kind, actor, subject set and time bucket; Ref points at the
// winning write (the group id of a comparison, the event id of a view).
type Claim struct {
	Key string
	Ref string
}

// Query selects an actor's recent events of one kind. SubjectID is optional.
type Query struct {
	ActorID   string
	Kind      model.InteractionKind
	SubjectID string
	Since     time.Time
}

// EventStore persists interaction events behind uniqueness claims.
type EventStore interface {
	// Insert stores events under claim atomically. It returns ErrConflict
	// when the claim key is already taken, in which case nothing is written.
	Insert(ctx context.Context, claim Claim, events []model.InteractionEvent) error

	// FindRecent returns matching events, newest first.
	FindRecent(ctx context.Context, q Query) ([]model.InteractionEvent, error)

	// FindByClaim returns the events stored under key, or ErrClaimNotFound.
	FindByClaim(ctx context.Context, key string) ([]model.InteractionEvent, error)

	// Counts aggregates a subject's events of one kind. Recent counts
	// events at or after since.
	Counts(ctx context.Context, subjectID string, kind model.InteractionKind, since time.Time) (model.InteractionCounts, error)

	Close() error
}

// Open builds the event store for driver.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (EventStore, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(o.indexOpts...), nil
	case DriverSQLite:
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgres(ctx, dsn, &o.pool)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validInsert(claim Claim, events []model.InteractionEvent) error {
	if claim.Key == "" || len(events) == 0 {
		return ErrInvalidEvent
	}
	return nil
}

// observe records latency and failures of one store call.
func observe(driver, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(driver, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrClaimNotFound) {
		metrics.RecordStoreError(driver, op)
	}
}
