package arbitrage

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGuard() *Guard {
	return NewGuard(DefaultGuardConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPriceIsPlausible(t *testing.T) {
	g := testGuard()

	tests := []struct {
		name  string
		price float64
		want  bool
	}{
		{"normal price", 142.73, true},
		{"small but in band", 0.000021, true},
		{"zero", 0, false},
		{"negative", -5, false},
		{"nan", math.NaN(), false},
		{"positive infinity", math.Inf(1), false},
		{"round market price", 100, true},
		{"sentinel 1000", 1000, false},
		{"near sentinel passes", 1000.01, true},
		{"below band", 1e-12, false},
		{"above band", 1e12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.PriceIsPlausible(tt.price, tt.name))
		})
	}
}

func TestOpportunityIsPlausible(t *testing.T) {
	g := testGuard()

	assert.True(t, g.OpportunityIsPlausible(19.8, 1.98, 100.5, 102, "ok"))

	// Any implausible price short-circuits regardless of profit figures.
	assert.False(t, g.OpportunityIsPlausible(1, 0.1, -1, 102, "bad price1"))
	assert.False(t, g.OpportunityIsPlausible(1, 0.1, 101, 1000, "sentinel price2"))

	// Fuses on profit magnitude.
	assert.False(t, g.OpportunityIsPlausible(50, 35, 101, 102, "pct fuse"))
	assert.False(t, g.OpportunityIsPlausible(50_000, 1.5, 101, 102, "usd fuse"))

	// Divergence fuse: two quotes for the same rate disagreeing by ~2x.
	assert.False(t, g.OpportunityIsPlausible(10, 1, 50.5, 102, "divergence"))
}

func TestGuardCustomSentinels(t *testing.T) {
	cfg := DefaultGuardConfig()
	cfg.SentinelPrices = []float64{42}
	g := NewGuard(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.False(t, g.PriceIsPlausible(42, "custom sentinel"))
	assert.True(t, g.PriceIsPlausible(1000, "default sentinel no longer set"))
}
