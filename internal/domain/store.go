package domain

import (
	"context"
	"time"
)

// TradeStore persists executed trade records.
type TradeStore interface {
	Create(ctx context.Context, rec TradeRecord) error
	GetByID(ctx context.Context, id string) (TradeRecord, error)
	// ListSince returns trades executed at or after the given time, newest
	// first. Used by the archiver.
	ListSince(ctx context.Context, since time.Time) ([]TradeRecord, error)
}
