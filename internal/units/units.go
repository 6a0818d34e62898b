// Package units converts between smallest-unit integer amounts and
// human-scale decimal amounts for SPL tokens, and applies slippage bounds to
// leg amounts.
package units

import "math"

// SlippageDirection selects which side of a swap a slippage bound protects.
type SlippageDirection string

const (
	// SlippageOut floors the minimum acceptable output of a leg.
	SlippageOut SlippageDirection = "out"
	// SlippageIn caps the maximum input spent on a leg.
	SlippageIn SlippageDirection = "in"
)

// ToBaseUnits converts a human-scale amount to smallest units, floor-rounded.
// Non-positive amounts convert to zero.
func ToBaseUnits(amount float64, decimals int) uint64 {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	raw := amount * math.Pow10(decimals)
	if raw >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(math.Floor(raw))
}

// FromBaseUnits converts a smallest-unit amount to its human-scale value.
func FromBaseUnits(raw uint64, decimals int) float64 {
	return float64(raw) / math.Pow10(decimals)
}

// ApplySlippage adjusts amount by bps in the given direction using integer
// arithmetic (truncating): SlippageOut returns amount*(10000-bps)/10000,
// SlippageIn returns amount*(10000+bps)/10000.
func ApplySlippage(amount uint64, bps int, dir SlippageDirection) uint64 {
	if bps < 0 {
		bps = 0
	}
	switch dir {
	case SlippageIn:
		return amount * (10000 + uint64(bps)) / 10000
	default:
		if bps >= 10000 {
			return 0
		}
		return amount * (10000 - uint64(bps)) / 10000
	}
}
