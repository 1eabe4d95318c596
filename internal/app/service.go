// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/fundora/internal/adapters/mq/worker"
	"github.com/okian/fundora/internal/adapters/repository"
	"github.com/okian/fundora/internal/config"
	"github.com/okian/fundora/internal/domain/enrich"
	"github.com/okian/fundora/internal/domain/interaction"
	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/internal/domain/returns"
	"github.com/okian/fundora/internal/domain/scoring"
	"github.com/okian/fundora/internal/domain/simulation"
	"github.com/okian/fundora/pkg/logger"
	"github.com/okian/fundora/pkg/metrics"
)

// ErrNotStarted is returned by operations that need Start to have run.
var ErrNotStarted = errors.New("service not started")

// catalog is what the service needs from the subject catalog.
type catalog interface {
	repository.Catalog
	repository.Ownership
}

// Service owns every component and implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Injected overrides; built from cfg when nil.
	catalog catalog
	store   repository.EventStore
	now     func() time.Time

	recorder *interaction.Recorder
	pool     *worker.Pool
	enricher *enrich.Enricher

	started   bool
	ownsStore bool
	logger    logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults to config.New().
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithCatalog supplies the subject catalog instead of loading catalog_path.
func WithCatalog(c catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithStore supplies the event store instead of opening store_driver. The
// caller keeps ownership: Stop leaves it open.
func WithStore(st repository.EventStore) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithClock overrides the recorder's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Components are built by Start.
func New(opts ...Option) *Service {
	s := &Service{cfg: config.New()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start builds and starts the components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	s.logger.Info(ctx, "starting fundora service...")

	if s.catalog == nil {
		c, err := s.loadCatalog()
		if err != nil {
			return err
		}
		s.catalog = c
	}

	if s.store == nil {
		st, err := repository.Open(ctx, s.cfg.StoreDriver, s.cfg.StoreDSN,
			repository.WithClaimIndexSize(s.cfg.DedupeIndexSize),
			repository.WithPoolConfig(repository.PoolConfig{MaxConns: int32(s.cfg.StoreMaxConns)}), //nolint:gosec // validated positive
		)
		if err != nil {
			return fmt.Errorf("open %s store: %w", s.cfg.StoreDriver, err)
		}
		s.store, s.ownsStore = st, true
	}

	riskModel, err := scoring.ModelByName(s.cfg.RiskModel)
	if err != nil {
		return err
	}
	s.enricher = enrich.New(
		scoring.New(scoring.WithRiskModel(riskModel)),
		returns.New(returns.WithFactors(returns.Factors{
			Low:    s.cfg.RiskFactorLow,
			Medium: s.cfg.RiskFactorMedium,
			High:   s.cfg.RiskFactorHigh,
		})),
		enrich.WithParallelism(s.cfg.EnrichParallelism),
	)

	recOpts := []interaction.Option{
		interaction.WithViewWindow(s.cfg.ViewWindow()),
		interaction.WithComparisonWindow(s.cfg.ComparisonWindow()),
		interaction.WithRecentWindow(s.cfg.RecentWindow()),
		interaction.WithCacheTTL(s.cfg.AnalyticsCacheTTL()),
	}
	if s.now != nil {
		recOpts = append(recOpts, interaction.WithClock(s.now))
	}
	s.recorder = interaction.NewRecorder(s.store, s.catalog, recOpts...)

	s.pool = worker.NewPool(
		worker.WithShards(s.cfg.WriterShards),
		worker.WithQueueSize(s.cfg.WriterQueueSize),
	)
	// Writers live until Stop, not until the caller's context ends.
	s.pool.Start(context.WithoutCancel(ctx))

	if s.cfg.JWTSecret == config.DevJWTSecret {
		s.logger.Warn(ctx, "using the development jwt secret; set jwt_secret in production")
	}

	s.started = true
	s.logger.Info(ctx, "fundora service started",
		logger.String("store", s.cfg.StoreDriver),
		logger.String("risk_model", s.cfg.RiskModel),
		logger.Int("writer_shards", s.cfg.WriterShards),
		logger.Int("writer_queue_size", s.cfg.WriterQueueSize),
	)
	return nil
}

func (s *Service) loadCatalog() (catalog, error) {
	if s.cfg.CatalogPath == "" {
		return repository.NewMemoryCatalog()
	}
	c, err := repository.LoadCatalog(s.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return c, nil
}

// Stop drains the dispatcher and closes the store if Start opened it. The
// next Start opens a fresh one.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping fundora service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown writers: %w", err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.store, s.ownsStore = nil, false
	}

	s.started = false
	s.logger.Info(ctx, "fundora service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Entities returns every catalog subject enriched, in catalog order.
func (s *Service) Entities(ctx context.Context) ([]model.EnrichedEntity, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	subjects, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.enricher.Enrich(ctx, subjects)
}

// Entity returns one enriched subject.
func (s *Service) Entity(ctx context.Context, id string) (model.EnrichedEntity, error) {
	if err := s.running(); err != nil {
		return model.EnrichedEntity{}, err
	}
	subject, err := s.catalog.Get(ctx, id)
	if err != nil {
		return model.EnrichedEntity{}, err
	}
	return s.enricher.One(subject), nil
}

// Analytics returns interaction counts for an existing subject.
func (s *Service) Analytics(ctx context.Context, id string) (model.SubjectAnalytics, error) {
	if err := s.running(); err != nil {
		return model.SubjectAnalytics{}, err
	}
	if _, err := s.catalog.Get(ctx, id); err != nil {
		return model.SubjectAnalytics{}, err
	}
	return s.recorder.Analytics(ctx, id)
}

// RecordView records a view on the actor's writer shard.
func (s *Service) RecordView(ctx context.Context, actorID, subjectID string, allowOwner bool) (interaction.Outcome, error) {
	return s.dispatch(ctx, actorID, func(ctx context.Context) interaction.Outcome {
		return s.recorder.RecordView(ctx, actorID, subjectID, allowOwner)
	})
}

// RecordComparison records a comparison on the actor's writer shard.
func (s *Service) RecordComparison(ctx context.Context, actorID string, subjectIDs []string, window time.Duration) (interaction.Outcome, error) {
	return s.dispatch(ctx, actorID, func(ctx context.Context) interaction.Outcome {
		return s.recorder.RecordComparison(ctx, actorID, subjectIDs, window)
	})
}

// dispatch runs record on the shard owning actorID and waits for it.
// Anonymous requests are rejected by the recorder without queueing.
func (s *Service) dispatch(ctx context.Context, actorID string, record func(context.Context) interaction.Outcome) (interaction.Outcome, error) {
	if err := s.running(); err != nil {
		return interaction.Outcome{}, err
	}
	if strings.TrimSpace(actorID) == "" {
		return record(ctx), nil
	}

	var out interaction.Outcome
	if err := s.pool.Do(ctx, actorID, func(ctx context.Context) { out = record(ctx) }); err != nil {
		if errors.Is(err, worker.ErrBackpressure) {
			s.logger.Warn(ctx, "writer shard full", logger.String("actor", actorID))
		}
		return interaction.Outcome{}, err
	}
	return out, nil
}

// Simulate compounds principal for years. The rate is ratePercent when
// given, else the subject's risk-adjusted or projected return, else the
// configured default.
func (s *Service) Simulate(ctx context.Context, principal float64, years int, ratePercent *float64, subjectID string) (simulation.Result, error) {
	if err := s.running(); err != nil {
		return simulation.Result{}, err
	}

	rate := s.cfg.DefaultSimulationRate
	if subjectID != "" {
		subject, err := s.catalog.Get(ctx, subjectID)
		if err != nil {
			return simulation.Result{}, err
		}
		rate = simulation.RateFor(s.enricher.One(subject), rate)
	}
	if ratePercent != nil {
		rate = *ratePercent / 100
	}
	return simulation.Simulate(principal, rate, years)
}

// Currency is the ISO code used to render amounts.
func (s *Service) Currency() string { return s.cfg.Currency }

// Config returns the active configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"store":         s.cfg.StoreDriver,
		"risk_model":    s.cfg.RiskModel,
		"writer_shards": s.cfg.WriterShards,
		"queue_size":    s.cfg.WriterQueueSize,
	}
	if !s.started {
		return stats
	}

	pending := s.pool.Len()
	stats["pending_writes"] = pending
	metrics.UpdateQueueSize(pending)

	if subjects, err := s.catalog.List(context.Background()); err == nil {
		stats["subjects"] = len(subjects)
	}
	if c, ok := s.store.(interface{ Claims() int64 }); ok {
		stats["held_claims"] = c.Claims()
	}
	return stats
}
