package probe

import "errors"

var (
	ErrUnhealthy    = errors.New("service is not healthy")
	ErrNoSubjects   = errors.New("not enough subjects to probe")
	ErrVerification = errors.New("exactly-once verification failed")
	ErrBadStatus    = errors.New("unexpected response status")
)
