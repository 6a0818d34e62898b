package raydium

import "encoding/json"

// --------------------------------------------------------------------------
// Raydium trade API DTOs
// --------------------------------------------------------------------------

// computeResponse is the envelope of GET /compute/swap-base-in. Success=false
// with a message is how Raydium reports an unroutable pair.
type computeResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Version string          `json:"version"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// computeData is the payload inside a successful compute response. Amounts
// are decimal strings in the tokens' smallest units.
type computeData struct {
	SwapType             string      `json:"swapType"`
	InputMint            string      `json:"inputMint"`
	InputAmount          string      `json:"inputAmount"`
	OutputMint           string      `json:"outputMint"`
	OutputAmount         string      `json:"outputAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SlippageBps          int         `json:"slippageBps"`
	PriceImpactPct       float64     `json:"priceImpactPct"`
	RoutePlan            []routeStep `json:"routePlan"`
}

// routeStep is one pool hop of the computed route.
type routeStep struct {
	PoolID     string `json:"poolId"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	FeeRate    int    `json:"feeRate"`
}

// transactionRequest is the body of POST /transaction/swap-base-in. The
// compute envelope goes back verbatim in SwapResponse.
type transactionRequest struct {
	ComputeUnitPriceMicroLamports string          `json:"computeUnitPriceMicroLamports"`
	SwapResponse                  json.RawMessage `json:"swapResponse"`
	TxVersion                     string          `json:"txVersion"`
	Wallet                        string          `json:"wallet"`
	WrapSol                       bool            `json:"wrapSol"`
	UnwrapSol                     bool            `json:"unwrapSol"`
}

// transactionResponse is the envelope of POST /transaction/swap-base-in.
type transactionResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    []struct {
		Transaction string `json:"transaction"`
	} `json:"data"`
}
