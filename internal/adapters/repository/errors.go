package repository

import "errors"

// Sentinel errors returned by stores and catalogs.
var (
	// ErrSubjectNotFound means the catalog has no subject with the given id.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrConflict means the interaction claim is already held by another write.
	ErrConflict = errors.New("interaction claim already taken")
	// ErrClaimNotFound means no events were stored under a claim key.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrInvalidEvent means an insert carried no events or an empty claim.
	ErrInvalidEvent = errors.New("invalid interaction event")
	// ErrUnknownDriver means the configured store driver is not supported.
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrInvalidCatalog means catalog seed data could not be used.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
