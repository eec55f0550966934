package ratelimiter

import "errors"

var (
	ErrInvalidConfig    = errors.New("ratelimiter.invalid_config")
	ErrStoreUnavailable = errors.New("ratelimiter.store_unavailable")
)
