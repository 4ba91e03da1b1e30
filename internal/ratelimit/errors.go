package ratelimit

import "errors"

var (
	ErrInvalidLimit  = errors.New("ratelimit: limit must be positive")
	ErrInvalidWindow = errors.New("ratelimit: window must be positive")
	ErrNilAction     = errors.New("ratelimit: action must not be nil")
	ErrNoRules       = errors.New("ratelimit: at least one rule is required")
	ErrNilRule       = errors.New("ratelimit: rule must not be nil")
)
