package interaction

import (
	"context"
	"fmt"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/metrics"
)

// Analytics returns view and comparison counts for subjectID. Results are
// cached until the TTL passes or a new interaction for the subject is
// recorded.
func (r *Recorder) Analytics(ctx context.Context, subjectID string) (model.SubjectAnalytics, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(subjectID); ok {
			metrics.RecordAnalyticsCache(true)
			return v.(model.SubjectAnalytics), nil
		}
		metrics.RecordAnalyticsCache(false)
	}

	since := r.now().UTC().Add(-r.recentWindow)
	views, err := r.store.Counts(ctx, subjectID, model.KindView, since)
	if err != nil {
		return model.SubjectAnalytics{}, fmt.Errorf("count views: %w", err)
	}
	comparisons, err := r.store.Counts(ctx, subjectID, model.KindComparison, since)
	if err != nil {
		return model.SubjectAnalytics{}, fmt.Errorf("count comparisons: %w", err)
	}

	out := model.SubjectAnalytics{
		SubjectID:   subjectID,
		Views:       views,
		Comparisons: comparisons,
		RecentDays:  int(r.recentWindow.Hours() / 24),
	}
	if r.cache != nil {
		r.cache.SetDefault(subjectID, out)
	}
	return out, nil
}

func (r *Recorder) invalidate(events []model.InteractionEvent) {
	if r.cache == nil {
		return
	}
	for _, e := range events {
		r.cache.Delete(e.SubjectID)
	}
}
