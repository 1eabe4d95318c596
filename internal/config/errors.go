package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure reported by Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the FUNDORA_CONFIG file or the
	// FUNDORA_* environment.
	ErrLoadConfig = errors.New("load config failed")
)
