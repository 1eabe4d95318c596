package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fundora/internal/adapters/http/auth"
	"github.com/okian/fundora/pkg/logger"
)

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Bursts <= 0 {
		c.Bursts = DefaultBursts
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Subjects < DefaultSubjects {
		c.Subjects = DefaultSubjects
	}
}

// Run executes the probe and returns its report. A report is returned
// alongside ErrVerification so callers can still print it.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg.Normalize()
	log := logger.Get().Named("probe")
	start := time.Now()

	log.Info(ctx, "starting fundora probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("bursts", cfg.Bursts),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.healthy(ctx); err != nil {
		return nil, err
	}

	ids, err := c.subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("subject listing failed: %w", err)
	}
	if len(ids) < cfg.Subjects {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNoSubjects, len(ids), cfg.Subjects)
	}

	resolver := auth.NewResolver(cfg.Secret)
	report := &Report{}
	for i := 0; i < cfg.Bursts; i++ {
		actor := "probe-" + uuid.NewString()
		token, err := resolver.Issue(actor, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("token issue failed: %w", err)
		}

		// Rotate subjects so bursts touch the whole catalog.
		view := ids[i%len(ids)]
		group := make([]string, 0, cfg.Subjects)
		for j := 0; j < cfg.Subjects; j++ {
			group = append(group, ids[(i+j)%len(ids)])
		}

		views, err := burst(ctx, cfg.Concurrency, func(ctx context.Context) (int, error) {
			return c.do(ctx, http.MethodPost, "/startups/"+view+"/views", token, nil, nil)
		})
		if err != nil {
			return nil, err
		}
		comparisons, err := burst(ctx, cfg.Concurrency, func(ctx context.Context) (int, error) {
			return c.do(ctx, http.MethodPost, "/comparisons", token, map[string]any{"startup_ids": group}, nil)
		})
		if err != nil {
			return nil, err
		}

		report.Views.add(views)
		report.Comparisons.add(comparisons)
		report.Bursts++

		if cfg.Verbose {
			log.Info(ctx, "burst finished",
				logger.String("actor", actor),
				logger.Any("views", views),
				logger.Any("comparisons", comparisons))
		}
	}
	report.Duration = time.Since(start)

	logStats(ctx, log, report, cfg.Concurrency)

	if !report.Ok() {
		return report, fmt.Errorf("%w: %d view and %d comparison bursts",
			ErrVerification, report.Views.Violations, report.Comparisons.Violations)
	}
	log.Info(ctx, "probe completed successfully")
	return report, nil
}

// burst fires n identical requests at once and tallies the results.
func burst(ctx context.Context, n int, send func(context.Context) (int, error)) (KindStats, error) {
	var created, dup, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	ready := make(chan struct{})
	for i := 0; i < n; i++ {
		g.Go(func() error {
			<-ready
			code, err := send(gctx)
			switch {
			case err != nil:
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return err
				}
				failed.Add(1)
			case code == http.StatusCreated:
				created.Add(1)
			case code == http.StatusOK:
				dup.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	close(ready)
	if err := g.Wait(); err != nil {
		return KindStats{}, err
	}

	stats := KindStats{
		Created:    int(created.Load()),
		Duplicates: int(dup.Load()),
		Failed:     int(failed.Load()),
	}
	if stats.Created != 1 || stats.Duplicates != n-1 {
		stats.Violations = 1
	}
	return stats, nil
}

func (k *KindStats) add(o KindStats) {
	k.Created += o.Created
	k.Duplicates += o.Duplicates
	k.Failed += o.Failed
	k.Violations += o.Violations
}

// logStats prints the final statistics.
func logStats(ctx context.Context, log logger.Logger, r *Report, concurrency int) {
	var requestsPerSecond, cleanRate float64
	total := r.Bursts * concurrency * 2
	if r.Duration > 0 {
		requestsPerSecond = float64(total) / r.Duration.Seconds()
	}
	if r.Bursts > 0 {
		clean := 2*r.Bursts - r.Views.Violations - r.Comparisons.Violations
		cleanRate = float64(clean) / float64(2*r.Bursts) * percentMultiplier
	}

	log.Info(ctx, "final statistics",
		logger.Int("bursts", r.Bursts),
		logger.Int("requests", total),
		logger.Int("viewsCreated", r.Views.Created),
		logger.Int("viewsDuplicate", r.Views.Duplicates),
		logger.Int("viewsFailed", r.Views.Failed),
		logger.Int("comparisonsCreated", r.Comparisons.Created),
		logger.Int("comparisonsDuplicate", r.Comparisons.Duplicates),
		logger.Int("comparisonsFailed", r.Comparisons.Failed),
		logger.Duration("duration", r.Duration),
		logger.Float64("cleanBurstRate", cleanRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
