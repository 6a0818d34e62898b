// Package domain contains the core types and ports for the solarb arbitrage
// bot: quotes, opportunities, trade records, and the interfaces implemented by
// the venue, cache, store, and blob adapters.
package domain

import "context"

// Quote is a fresh, immutable price quote for swapping InAmount of InSymbol
// into OutSymbol on one venue. Amounts are in the tokens' smallest units
// (lamports for SOL); Price is the human-scale rate, out per one unit in.
type Quote struct {
	InSymbol  string
	OutSymbol string
	InAmount  uint64
	OutAmount uint64
	Price     float64
	Venue     string
	PoolID    string
}

// SwapRequest describes one swap leg to submit to a venue.
type SwapRequest struct {
	InSymbol     string
	OutSymbol    string
	InAmount     uint64
	MinOutAmount uint64
}

// SwapResult is the structural outcome of a swap submission. Venues never
// signal ordinary failure through an error; they set Success=false and
// explain in Description.
type SwapResult struct {
	Success     bool
	TxSignature string
	Description string
	OutAmount   uint64
}

// VenueClient is the capability contract each venue adapter implements.
// GetQuote returns (nil, nil) for ordinary "no route" conditions; a non-nil
// error means the venue could not be consulted at all.
type VenueClient interface {
	Name() string
	GetQuote(ctx context.Context, inSymbol, outSymbol string, inAmount uint64) (*Quote, error)
	ExecuteSwap(ctx context.Context, req SwapRequest) (SwapResult, error)
}
