package interaction

import "errors"

var (
	// ErrUnauthenticated marks outcomes without an actor.
	ErrUnauthenticated = errors.New("actor is not authenticated")
	// ErrInsufficientSubjects marks comparisons of fewer than two subjects.
	ErrInsufficientSubjects = errors.New("comparison needs at least two distinct subjects")
	// ErrUnresolvedConflict means a claim conflict could not be traced to its winner.
	ErrUnresolvedConflict = errors.New("claim conflict without a stored winner")
)
