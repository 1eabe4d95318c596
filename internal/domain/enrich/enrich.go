// Package enrich turns catalog subjects into enriched entities by running
// the score and return engines over each snapshot.
package enrich

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/internal/domain/returns"
	"github.com/okian/fundora/internal/domain/scoring"
	"github.com/okian/fundora/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Enricher computes per-subject metrics with bounded parallelism.
type Enricher struct {
	scores  *scoring.Engine
	returns *returns.Engine
	limit   int
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithParallelism caps concurrent enrichment goroutines.
func WithParallelism(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.limit = n
		}
	}
}

// New creates an Enricher. Nil engines fall back to their defaults.
func New(scores *scoring.Engine, rets *returns.Engine, opts ...Option) *Enricher {
	if scores == nil {
		scores = scoring.New()
	}
	if rets == nil {
		rets = returns.New()
	}
	e := &Enricher{scores: scores, returns: rets, limit: runtime.NumCPU()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// One enriches a single subject.
func (e *Enricher) One(s model.Subject) model.EnrichedEntity {
	score := e.scores.Score(s.Snapshot)
	detail := e.returns.Detail(s.Snapshot)
	return model.EnrichedEntity{
		Snapshot:        s.Snapshot,
		Profile:         s.Profile,
		SubjectID:       s.Snapshot.SubjectID,
		Score:           score,
		ProjectedReturn: detail.Value,
		AdjustedReturn:  e.returns.Adjust(detail, score.RiskLevel),
		ReturnMethod:    detail.Method,
		RevenueGrowth:   returns.RevenueGrowth(s.Snapshot),
	}
}

// Enrich enriches subjects in input order. It only fails when ctx is done.
func (e *Enricher) Enrich(ctx context.Context, subjects []model.Subject) ([]model.EnrichedEntity, error) {
	defer func(start time.Time) {
		metrics.RecordEnrichmentDuration(float64(time.Since(start).Microseconds()) / 1000)
	}(time.Now())

	out := make([]model.EnrichedEntity, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	for i := range subjects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.One(subjects[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
