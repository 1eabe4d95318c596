package probe

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL     = "http://localhost:9080"
	DefaultBursts      = 20
	DefaultConcurrency = 16
	DefaultTimeout     = 10 * time.Second
	DefaultSubjects    = 2

	tokenTTL          = 10 * time.Minute
	percentMultiplier = 100
)
