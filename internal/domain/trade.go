package domain

import "time"

// TradeStatus is the terminal state of a two-leg execution.
type TradeStatus string

const (
	// TradeCompleted means both legs landed.
	TradeCompleted TradeStatus = "completed"
	// TradeUnhedged means the buy leg committed but the sell leg failed,
	// leaving an open position that requires operator attention.
	TradeUnhedged TradeStatus = "unhedged"
)

// TradeLeg records one executed swap leg.
type TradeLeg struct {
	Venue        string
	InSymbol     string
	OutSymbol    string
	InAmount     uint64
	OutAmount    uint64
	MinOutAmount uint64
	TxSignature  string
}

// TradeRecord is the persisted outcome of an executed (or partially executed)
// opportunity. Only executed trades are recorded; detected-but-unexecuted
// candidates are never persisted.
type TradeRecord struct {
	ID            string
	OpportunityID string
	Kind          OpportunityKind
	BuyVenue      string
	SellVenue     string
	EstProfitUsd  float64
	Status        TradeStatus
	BuyLeg        TradeLeg
	SellLeg       *TradeLeg
	ExecutedAt    time.Time
}
