package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrNetworkExhausted marks a read or connectivity call whose retries are
	// all spent. Callers must not treat it like "no data"; it means the
	// network layer itself is unhealthy.
	ErrNetworkExhausted = errors.New("network retries exhausted")
	ErrSigningFailed    = errors.New("signing failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrStalePrice       = errors.New("reference price stale")
	ErrLockHeld         = errors.New("lock already held")
)
