package domain

import (
	"context"
	"time"
)

// PriceCache stores the latest USD reference price per symbol. It is written
// by the price feed and read by the run loop; implementations return
// ErrNotFound when no price has been published for a symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, priceUsd float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// RateLimiter enforces per-key request budgets shared across processes. Wait
// blocks until a slot is available or the context is cancelled.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager hands out distributed mutual-exclusion locks. Acquire returns
// ErrLockHeld when another holder owns the key; the returned release func is
// safe to call more than once.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
