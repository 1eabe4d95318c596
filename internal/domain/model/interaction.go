package model

import "time"

// InteractionKind distinguishes recorded interaction types.
type InteractionKind string

const (
	KindView       InteractionKind = "view"
	KindComparison InteractionKind = "comparison"
)

// InteractionStatus is the terminal state of one recording request.
type InteractionStatus string

const (
	StatusRecorded             InteractionStatus = "recorded"
	StatusDuplicate            InteractionStatus = "duplicate"
	StatusOwnerSkipped         InteractionStatus = "owner_skipped"
	StatusUnauthenticated      InteractionStatus = "unauthenticated"
	StatusInsufficientSubjects InteractionStatus = "insufficient_subjects"
	StatusError                InteractionStatus = "error"
)

// InteractionEvent is one immutable recorded interaction. Comparison
// events share a GroupID with every other subject of the same action.
type InteractionEvent struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	SubjectID  string          `json:"subject_id"`
	Kind       InteractionKind `json:"kind"`
	GroupID    string          `json:"group_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// InteractionCounts aggregates events of one kind for one subject.
type InteractionCounts struct {
	Total          int `json:"total"`
	DistinctActors int `json:"distinct_actors"`
	Recent         int `json:"recent"`
}

// SubjectAnalytics is the read model behind the analytics endpoint.
type SubjectAnalytics struct {
	SubjectID   string            `json:"subject_id"`
	Views       InteractionCounts `json:"views"`
	Comparisons InteractionCounts `json:"comparisons"`
	RecentDays  int               `json:"recent_window_days"`
}
