package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, uint64(1_000_000_000), ToBaseUnits(1, 9))
	assert.Equal(t, uint64(100_000_000), ToBaseUnits(0.1, 9))
	assert.Equal(t, uint64(1_500_000), ToBaseUnits(1.5, 6))
	// Floor rounding, never up.
	assert.Equal(t, uint64(1), ToBaseUnits(0.0000019, 6))
	assert.Equal(t, uint64(0), ToBaseUnits(0, 9))
	assert.Equal(t, uint64(0), ToBaseUnits(-3, 9))
	assert.Equal(t, uint64(0), ToBaseUnits(math.NaN(), 9))
	assert.Equal(t, uint64(0), ToBaseUnits(math.Inf(-1), 9))
}

func TestFromBaseUnits(t *testing.T) {
	assert.InDelta(t, 1.0, FromBaseUnits(1_000_000_000, 9), 1e-12)
	assert.InDelta(t, 2.5, FromBaseUnits(2_500_000, 6), 1e-12)
	assert.InDelta(t, 0, FromBaseUnits(0, 6), 1e-12)
}

func TestApplySlippage(t *testing.T) {
	// out: amount * (10000-bps)/10000, truncating.
	assert.Equal(t, uint64(9950), ApplySlippage(10000, 50, SlippageOut))
	assert.Equal(t, uint64(99), ApplySlippage(100, 50, SlippageOut))
	assert.Equal(t, uint64(0), ApplySlippage(10, 10000, SlippageOut))
	// in: amount * (10000+bps)/10000.
	assert.Equal(t, uint64(10050), ApplySlippage(10000, 50, SlippageIn))
	assert.Equal(t, uint64(100), ApplySlippage(100, 50, SlippageIn))
	// Negative bps is clamped to zero.
	assert.Equal(t, uint64(10000), ApplySlippage(10000, -5, SlippageOut))
}
