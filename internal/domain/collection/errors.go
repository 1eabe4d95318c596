package collection

import "errors"

var (
	// ErrUnknownSortKey is returned by ParseSortKey for unsupported keys.
	ErrUnknownSortKey = errors.New("unknown sort key")
	// ErrInvalidFilter is returned by Filters.Validate.
	ErrInvalidFilter = errors.New("invalid filter")
)
