// Package interaction records view and comparison interactions exactly once
// per actor, subject set and dedup window, and serves aggregate counts.
//
// A recording request ends in one of the model.Status* states. The recorder
// never returns an error to its caller; store failures become StatusError
// with the cause attached to the Outcome.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/fundora/internal/adapters/repository"
	"github.com/okian/fundora/internal/domain/dedupe"
	"github.com/okian/fundora/internal/domain/model"
	"github.com/okian/fundora/pkg/logger"
	"github.com/okian/fundora/pkg/metrics"
	"github.com/patrickmn/go-cache"
)

// Defaults.
const (
	DefaultWindow       = 5 * time.Minute
	DefaultRecentWindow = 30 * 24 * time.Hour
	DefaultCacheTTL     = 30 * time.Second
)

// Outcome is the terminal state of one recording request. Events holds the
// created events, or the existing ones for a duplicate.
type Outcome struct {
	Status  model.InteractionStatus  `json:"status"`
	GroupID string                   `json:"group_id,omitempty"`
	Events  []model.InteractionEvent `json:"events"`
	Err     error                    `json:"-"`
}

// Recorder is the interaction state machine.
type Recorder struct {
	store  repository.EventStore
	owners repository.Ownership

	now   func() time.Time
	newID func() string
	log   logger.Logger

	viewWindow       time.Duration
	comparisonWindow time.Duration
	recentWindow     time.Duration
	cacheTTL         time.Duration
	cache            *cache.Cache
}

// NewRecorder creates a Recorder over store. owners resolves subject
// ownership and existence.
func NewRecorder(store repository.EventStore, owners repository.Ownership, opts ...Option) *Recorder {
	r := &Recorder{
		store:            store,
		owners:           owners,
		now:              time.Now,
		newID:            func() string { return uuid.NewString() },
		log:              logger.Get().Named("recorder"),
		viewWindow:       DefaultWindow,
		comparisonWindow: DefaultWindow,
		recentWindow:     DefaultRecentWindow,
		cacheTTL:         DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheTTL > 0 {
		r.cache = cache.New(r.cacheTTL, 2*r.cacheTTL)
	}
	return r
}

// RecordView records actorID viewing subjectID. Views by the subject's owner
// are skipped unless allowOwner is set.
func (r *Recorder) RecordView(ctx context.Context, actorID, subjectID string, allowOwner bool) Outcome {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return r.finish(ctx, model.KindView, Outcome{Status: model.StatusUnauthenticated, Err: ErrUnauthenticated})
	}

	owner, err := r.owners.OwnerOf(ctx, subjectID)
	if err != nil {
		return r.fail(ctx, model.KindView, "resolve owner", err)
	}
	if !allowOwner && owner != "" && owner == actorID {
		return r.finish(ctx, model.KindView, Outcome{Status: model.StatusOwnerSkipped})
	}

	now := r.now().UTC()
	recent, err := r.store.FindRecent(ctx, repository.Query{
		ActorID:   actorID,
		Kind:      model.KindView,
		SubjectID: subjectID,
		Since:     now.Add(-r.viewWindow),
	})
	if err != nil {
		return r.fail(ctx, model.KindView, "find recent views", err)
	}
	if len(recent) > 0 {
		return r.finish(ctx, model.KindView, Outcome{Status: model.StatusDuplicate, Events: recent[:1]})
	}

	ev := model.InteractionEvent{
		ID:         r.newID(),
		ActorID:    actorID,
		SubjectID:  subjectID,
		Kind:       model.KindView,
		OccurredAt: now,
	}
	claim := repository.Claim{
		Key: dedupe.Key(string(model.KindView), actorID, []string{subjectID}, now, r.viewWindow),
		Ref: ev.ID,
	}
	return r.insert(ctx, model.KindView, claim, []model.InteractionEvent{ev})
}

// RecordComparison records actorID comparing subjectIDs as one group. The
// subject order is irrelevant. A non-positive window uses the configured
// default.
func (r *Recorder) RecordComparison(ctx context.Context, actorID string, subjectIDs []string, window time.Duration) Outcome {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return r.finish(ctx, model.KindComparison, Outcome{Status: model.StatusUnauthenticated, Err: ErrUnauthenticated})
	}

	set := dedupe.Canonical(subjectIDs)
	if len(set) < 2 {
		return r.finish(ctx, model.KindComparison, Outcome{Status: model.StatusInsufficientSubjects, Err: ErrInsufficientSubjects})
	}
	for _, id := range set {
		if _, err := r.owners.OwnerOf(ctx, id); err != nil {
			return r.fail(ctx, model.KindComparison, "resolve subject", err)
		}
	}
	if window <= 0 {
		window = r.comparisonWindow
	}

	now := r.now().UTC()
	recent, err := r.store.FindRecent(ctx, repository.Query{
		ActorID: actorID,
		Kind:    model.KindComparison,
		Since:   now.Add(-window),
	})
	if err != nil {
		return r.fail(ctx, model.KindComparison, "find recent comparisons", err)
	}
	if group, events := matchGroup(recent, set); group != "" {
		return r.finish(ctx, model.KindComparison, Outcome{Status: model.StatusDuplicate, GroupID: group, Events: events})
	}

	group := r.newID()
	events := make([]model.InteractionEvent, 0, len(set))
	for _, id := range set {
		events = append(events, model.InteractionEvent{
			ID:         r.newID(),
			ActorID:    actorID,
			SubjectID:  id,
			Kind:       model.KindComparison,
			GroupID:    group,
			OccurredAt: now,
		})
	}
	claim := repository.Claim{
		Key: dedupe.Key(string(model.KindComparison), actorID, set, now, window),
		Ref: group,
	}
	return r.insert(ctx, model.KindComparison, claim, events)
}

// matchGroup returns the newest group in recent whose subjects equal set.
// recent is ordered newest first.
func matchGroup(recent []model.InteractionEvent, set []string) (string, []model.InteractionEvent) {
	groups := make(map[string][]model.InteractionEvent)
	var order []string
	for _, e := range recent {
		if _, ok := groups[e.GroupID]; !ok {
			order = append(order, e.GroupID)
		}
		groups[e.GroupID] = append(groups[e.GroupID], e)
	}

	for _, g := range order {
		events := groups[g]
		ids := make([]string, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.SubjectID)
		}
		if dedupe.SameSet(ids, set) {
			return g, events
		}
	}
	return "", nil
}

// insert writes events under claim. Losing the claim to a concurrent writer
// turns into a duplicate of the winner.
func (r *Recorder) insert(ctx context.Context, kind model.InteractionKind, claim repository.Claim, events []model.InteractionEvent) Outcome {
	err := r.store.Insert(ctx, claim, events)
	switch {
	case err == nil:
		r.invalidate(events)
		out := Outcome{Status: model.StatusRecorded, Events: events}
		if kind == model.KindComparison {
			out.GroupID = claim.Ref
		}
		return r.finish(ctx, kind, out)

	case errors.Is(err, repository.ErrConflict):
		metrics.RecordClaimConflict()
		winner, err := r.store.FindByClaim(ctx, claim.Key)
		if err != nil {
			if errors.Is(err, repository.ErrClaimNotFound) {
				err = ErrUnresolvedConflict
			}
			return r.fail(ctx, kind, "resolve claim conflict", err)
		}
		r.log.Debug(ctx, "claim conflict resolved to existing write", logger.String("claim", claim.Key))
		out := Outcome{Status: model.StatusDuplicate, Events: winner}
		if kind == model.KindComparison && len(winner) > 0 {
			out.GroupID = winner[0].GroupID
		}
		return r.finish(ctx, kind, out)

	default:
		return r.fail(ctx, kind, "insert events", err)
	}
}

func (r *Recorder) fail(ctx context.Context, kind model.InteractionKind, op string, err error) Outcome {
	err = fmt.Errorf("%s: %w", op, err)
	r.log.Error(ctx, "interaction not recorded",
		logger.String("kind", string(kind)),
		logger.Error(err),
	)
	metrics.RecordErrorByComponent("recorder", op)
	return r.finish(ctx, kind, Outcome{Status: model.StatusError, Err: err})
}

func (r *Recorder) finish(_ context.Context, kind model.InteractionKind, out Outcome) Outcome {
	metrics.RecordInteraction(string(kind), string(out.Status))
	return out
}
