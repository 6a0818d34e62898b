package jupiter

import "encoding/json"

// --------------------------------------------------------------------------
// Jupiter swap API DTOs
// --------------------------------------------------------------------------

// quoteResponse is the body of GET /quote. Amounts are decimal strings in the
// tokens' smallest units; they are parsed and range-checked before use.
type quoteResponse struct {
	InputMint            string      `json:"inputMint"`
	OutputMint           string      `json:"outputMint"`
	InAmount             string      `json:"inAmount"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []routeStep `json:"routePlan"`
}

// routeStep is one hop of the quoted route.
type routeStep struct {
	SwapInfo struct {
		AmmKey     string `json:"ammKey"`
		Label      string `json:"label"`
		InputMint  string `json:"inputMint"`
		OutputMint string `json:"outputMint"`
		InAmount   string `json:"inAmount"`
		OutAmount  string `json:"outAmount"`
	} `json:"swapInfo"`
	Percent int `json:"percent"`
}

// swapRequest is the body of POST /swap. QuoteResponse carries the raw quote
// bytes back to the API untouched; re-marshaling a parsed struct would drop
// fields the builder needs.
type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
}

// swapResponse is the body returned by POST /swap.
type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}
