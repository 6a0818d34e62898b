package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhuezo/solarb/internal/domain"
)

func TestLookupWellKnown(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	sol, ok := reg.Lookup("SOL")
	require.True(t, ok)
	assert.Equal(t, 9, sol.Decimals)
	assert.Equal(t, "So11111111111111111111111111111111111111112", sol.Mint)

	usdc, ok := reg.Lookup("usdc")
	require.True(t, ok)
	assert.Equal(t, "USDC", usdc.Symbol)
	assert.Equal(t, 6, usdc.Decimals)

	_, ok = reg.Lookup("NOPE")
	assert.False(t, ok)
}

func TestOverrideShadowsBuiltin(t *testing.T) {
	reg, err := NewRegistry(map[string]domain.TokenInfo{
		"usdc": {Mint: "So11111111111111111111111111111111111111112", Decimals: 8},
	})
	require.NoError(t, err)

	info, ok := reg.Lookup("USDC")
	require.True(t, ok)
	assert.Equal(t, 8, info.Decimals)
	assert.Equal(t, "So11111111111111111111111111111111111111112", info.Mint)
}

func TestOverrideValidation(t *testing.T) {
	_, err := NewRegistry(map[string]domain.TokenInfo{
		"BAD": {Mint: "not-base58-0OIl", Decimals: 6},
	})
	assert.Error(t, err)

	_, err = NewRegistry(map[string]domain.TokenInfo{
		"BAD": {Mint: "So1111111111111111111111111111111111111111", Decimals: 6},
	})
	assert.Error(t, err, "wrong decoded length must be rejected")

	_, err = NewRegistry(map[string]domain.TokenInfo{
		"BAD": {Mint: "So11111111111111111111111111111111111111112", Decimals: 42},
	})
	assert.Error(t, err)
}
