// Package arbitrage detects cross-venue arbitrage opportunities for a token
// pair and guards them against implausible input data.
package arbitrage

import (
	"log/slog"
	"math"
)

// GuardConfig holds the sanity bounds for the plausibility guard. These are
// upper-bound fuses against bad data, not economic parameters; risk appetite
// lives in the detector's profit thresholds.
type GuardConfig struct {
	// MinPrice / MaxPrice is the absolute magnitude band a price must fall in.
	MinPrice float64
	MaxPrice float64
	// SentinelPrices are values that look like dummy defaults from a failed
	// upstream integration and are never accepted as real.
	SentinelPrices []float64
	// MaxProfitPct rejects opportunities whose edge exceeds this percentage.
	MaxProfitPct float64
	// MaxProfitUsd rejects opportunities above this absolute profit.
	MaxProfitUsd float64
	// MaxPriceDivergence rejects quote pairs whose relative divergence
	// exceeds this fraction; two quotes for the same conceptual rate should
	// not disagree this much.
	MaxPriceDivergence float64
}

// DefaultGuardConfig returns the standard fuse settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MinPrice:           1e-9,
		MaxPrice:           1e9,
		SentinelPrices:     []float64{1000},
		MaxProfitPct:       20,
		MaxProfitUsd:       10_000,
		MaxPriceDivergence: 0.5,
	}
}

// Guard holds the configured bounds. Its predicates are pure apart from
// logging the numeric reason for each rejection.
type Guard struct {
	cfg    GuardConfig
	logger *slog.Logger
}

// NewGuard creates a Guard with the given bounds.
func NewGuard(cfg GuardConfig, logger *slog.Logger) *Guard {
	return &Guard{cfg: cfg, logger: logger.With(slog.String("component", "guard"))}
}

// PriceIsPlausible reports whether a price can be trusted as real market
// data. Non-positive, non-finite, sentinel, and out-of-band values are all
// rejected so that a degenerate upstream default can never be mistaken for a
// quote.
func (g *Guard) PriceIsPlausible(price float64, label string) bool {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		g.reject("non-positive or non-finite price", label, slog.Float64("price", price))
		return false
	}
	for _, sentinel := range g.cfg.SentinelPrices {
		if price == sentinel {
			g.reject("sentinel price", label, slog.Float64("price", price))
			return false
		}
	}
	if price < g.cfg.MinPrice || price > g.cfg.MaxPrice {
		g.reject("price outside magnitude band", label,
			slog.Float64("price", price),
			slog.Float64("min", g.cfg.MinPrice),
			slog.Float64("max", g.cfg.MaxPrice),
		)
		return false
	}
	return true
}

// OpportunityIsPlausible reports whether a scored candidate can be trusted.
// Both prices must pass PriceIsPlausible (checked first, short-circuiting the
// profit checks), and the profit figures and price divergence must sit below
// the configured fuses.
func (g *Guard) OpportunityIsPlausible(profitUsd, profitPct, price1, price2 float64, label string) bool {
	if !g.PriceIsPlausible(price1, label) || !g.PriceIsPlausible(price2, label) {
		return false
	}
	if profitPct > g.cfg.MaxProfitPct {
		g.reject("profit percent above sanity bound", label,
			slog.Float64("profit_pct", profitPct),
			slog.Float64("max", g.cfg.MaxProfitPct),
		)
		return false
	}
	if profitUsd > g.cfg.MaxProfitUsd {
		g.reject("profit usd above sanity bound", label,
			slog.Float64("profit_usd", profitUsd),
			slog.Float64("max", g.cfg.MaxProfitUsd),
		)
		return false
	}
	mean := (price1 + price2) / 2
	if mean > 0 {
		divergence := math.Abs(price1-price2) / mean
		if divergence > g.cfg.MaxPriceDivergence {
			g.reject("price divergence above sanity bound", label,
				slog.Float64("price1", price1),
				slog.Float64("price2", price2),
				slog.Float64("divergence", divergence),
				slog.Float64("max", g.cfg.MaxPriceDivergence),
			)
			return false
		}
	}
	return true
}

func (g *Guard) reject(reason, label string, attrs ...any) {
	args := append([]any{slog.String("reason", reason), slog.String("label", label)}, attrs...)
	g.logger.Warn("validation rejected", args...)
}
