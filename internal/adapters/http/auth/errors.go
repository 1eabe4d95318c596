package auth

import "errors"

// Sentinel kinds for token resolution.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
	ErrNoSecret     = errors.New("signing secret is empty")
)
