// Package probe drives a running server with concurrent duplicate
// interactions and checks that each burst records exactly once.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Secret      string        // HMAC secret used to mint actor tokens
	Bursts      int           // Number of bursts, each with a fresh actor
	Concurrency int           // Identical requests fired per burst and kind
	Timeout     time.Duration // HTTP request timeout
	Subjects    int           // Subjects per comparison, at least 2
	Verbose     bool          // Log every burst
}

// KindStats counts responses for one interaction kind.
type KindStats struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
	Violations int `json:"violations"`
}

// Report is the outcome of a probe run.
type Report struct {
	Bursts      int           `json:"bursts"`
	Views       KindStats     `json:"views"`
	Comparisons KindStats     `json:"comparisons"`
	Duration    time.Duration `json:"duration"`
}

// Ok reports whether every burst recorded exactly once.
func (r *Report) Ok() bool {
	return r.Views.Violations == 0 && r.Comparisons.Violations == 0
}
