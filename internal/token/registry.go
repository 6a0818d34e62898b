// Package token resolves token symbols to SPL mint metadata. Lookup is an
// explicit two-tier table: operator-configured overrides first, then the
// built-in registry of well-known mainnet mints.
package token

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/fhuezo/solarb/internal/domain"
)

// wellKnown is the built-in tier of the registry. Decimals follow the mint
// accounts on mainnet-beta.
var wellKnown = map[string]domain.TokenInfo{
	"SOL":  {Symbol: "SOL", Mint: "So11111111111111111111111111111111111111112", Decimals: 9},
	"USDC": {Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
	"USDT": {Symbol: "USDT", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6},
	"BONK": {Symbol: "BONK", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5},
	"JUP":  {Symbol: "JUP", Mint: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6},
	"RAY":  {Symbol: "RAY", Mint: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Decimals: 6},
}

// Registry implements domain.TokenRegistry.
type Registry struct {
	overrides map[string]domain.TokenInfo
}

// NewRegistry builds a Registry with the given override tier layered on top
// of the built-in table. Override mints are validated eagerly: an override
// with a malformed mint address or bad decimals fails construction.
func NewRegistry(overrides map[string]domain.TokenInfo) (*Registry, error) {
	normalized := make(map[string]domain.TokenInfo, len(overrides))
	for symbol, info := range overrides {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			return nil, fmt.Errorf("token: override with empty symbol")
		}
		if err := validateMint(info.Mint); err != nil {
			return nil, fmt.Errorf("token: override %s: %w", symbol, err)
		}
		if info.Decimals < 0 || info.Decimals > 18 {
			return nil, fmt.Errorf("token: override %s: decimals %d out of range", symbol, info.Decimals)
		}
		info.Symbol = symbol
		normalized[symbol] = info
	}
	return &Registry{overrides: normalized}, nil
}

// Lookup resolves a symbol, override tier first. Unknown symbols return
// (TokenInfo{}, false); the caller decides whether that is an error.
func (r *Registry) Lookup(symbol string) (domain.TokenInfo, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if info, ok := r.overrides[symbol]; ok {
		return info, true
	}
	info, ok := wellKnown[symbol]
	return info, ok
}

// validateMint checks that the mint decodes as a 32-byte base58 address.
func validateMint(mint string) error {
	raw, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("invalid mint %q: %w", mint, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid mint %q: decoded to %d bytes, want 32", mint, len(raw))
	}
	return nil
}

var _ domain.TokenRegistry = (*Registry)(nil)
