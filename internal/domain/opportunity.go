package domain

// OpportunityKind distinguishes how a candidate was derived.
type OpportunityKind string

const (
	// OppSimpleSpread buys on the cheaper venue and sells on the dearer one
	// in the same direction.
	OppSimpleSpread OpportunityKind = "simple_spread"
	// OppRoundTrip composes two venue rates into a closed loop whose product
	// exceeds 1.
	OppRoundTrip OpportunityKind = "round_trip"
)

// Opportunity is a scored arbitrage candidate that has already passed the
// plausibility guard and the configured profit floors. It is ephemeral:
// derived once per cycle and never persisted.
type Opportunity struct {
	ID              string
	Kind            OpportunityKind
	BuyVenue        string
	SellVenue       string
	InSymbol        string
	OutSymbol       string
	SizeInBaseUnits uint64
	EstProfitUsd    float64
	ProfitBps       float64
	BuyQuote        Quote
	SellQuote       Quote
}
