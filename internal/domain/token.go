package domain

// TokenInfo describes a tradable SPL token. Decimals is the number of base-10
// digits between the smallest unit and the human-scale amount (9 for SOL).
type TokenInfo struct {
	Symbol   string
	Mint     string
	Decimals int
}

// TokenRegistry resolves a token symbol to its on-chain metadata. Lookup
// returns (TokenInfo{}, false) for unknown symbols.
type TokenRegistry interface {
	Lookup(symbol string) (TokenInfo, bool)
}
