package scoring

import "errors"

// Sentinel errors for this package.
var (
	ErrUnknownModel = errors.New("unknown risk model")
)
