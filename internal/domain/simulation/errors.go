package simulation

import "errors"

var (
	// ErrInvalidPrincipal is returned when the principal is not positive.
	ErrInvalidPrincipal = errors.New("principal must be positive")
	// ErrInvalidYears is returned when the horizon is outside 1..MaxYears.
	ErrInvalidYears = errors.New("years must be between 1 and 100")
	// ErrInvalidRate is returned when the rate would lose more than the principal.
	ErrInvalidRate = errors.New("annual rate must be at least -100%")
	// ErrUnknownCurrency is returned when a currency code is not recognised.
	ErrUnknownCurrency = errors.New("unknown currency")
)
