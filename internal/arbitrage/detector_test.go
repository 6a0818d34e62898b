package arbitrage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhuezo/solarb/internal/domain"
	"github.com/fhuezo/solarb/internal/token"
	"github.com/fhuezo/solarb/internal/units"
)

type fakeVenue struct {
	name   string
	prices map[string]float64 // "IN->OUT" -> price; missing = no route
	err    error
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) GetQuote(ctx context.Context, inSym, outSym string, inAmount uint64) (*domain.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[inSym+"->"+outSym]
	if !ok {
		return nil, nil
	}
	return &domain.Quote{
		InSymbol:  inSym,
		OutSymbol: outSym,
		InAmount:  inAmount,
		OutAmount: uint64(float64(inAmount) * price),
		Price:     price,
		Venue:     f.name,
	}, nil
}

func (f *fakeVenue) ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	return domain.SwapResult{}, errors.New("not implemented")
}

type fakeProber struct{ err error }

func (p *fakeProber) Check(ctx context.Context) error { return p.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDetector(t *testing.T, a, b *fakeVenue, opts func(*DetectorConfig)) *Detector {
	t.Helper()
	reg, err := token.NewRegistry(nil)
	require.NoError(t, err)

	cfg := DetectorConfig{
		VenueA:       a,
		VenueB:       b,
		Registry:     reg,
		Guard:        NewGuard(DefaultGuardConfig(), discardLogger()),
		MinProfitUsd: 5,
		Logger:       discardLogger(),
	}
	if opts != nil {
		opts(&cfg)
	}
	return NewDetector(cfg)
}

func TestEvaluateSimpleSpread(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{"SOL->USDC": 100}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.Equal(t, domain.OppSimpleSpread, opp.Kind)
	assert.Equal(t, "jupiter", opp.BuyVenue)
	assert.Equal(t, "raydium", opp.SellVenue)
	// ((102-100)/101) * 1000
	assert.InDelta(t, 19.80198, opp.EstProfitUsd, 0.001)
	assert.InDelta(t, 198.0198, opp.ProfitBps, 0.001)
	// notional/refPrice = 10 SOL in lamports.
	assert.Equal(t, units.ToBaseUnits(10, 9), opp.SizeInBaseUnits)
}

func TestDefaultGuardAcceptsRoundNumberMarketPrice(t *testing.T) {
	// 100 is a perfectly ordinary market price; only 1000 is a dummy-data
	// sentinel out of the box. A 100/102 split must trade under the
	// unmodified default fuses.
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{"SOL->USDC": 100}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	d := newTestDetector(t, a, b, nil)

	require.Equal(t, []float64{1000}, DefaultGuardConfig().SentinelPrices)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.InDelta(t, 19.80198, opp.EstProfitUsd, 0.001)
}

func TestEvaluateTinySpreadBelowFloor(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{"SOL->USDC": 100}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 100.01}}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestEvaluateRejectsSentinelPrice(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{"SOL->USDC": 1000}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	assert.Nil(t, opp, "sentinel-valued quote must be rejected regardless of profit math")
}

func TestEvaluateRoundTripPreferredOverSimple(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{
		"SOL->USDC": 100.5,
		"USDC->SOL": 0.009,
	}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{
		"SOL->USDC": 110,
		"USDC->SOL": 0.01005,
	}}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	require.NotNil(t, opp)

	// 100.5 * 0.01005 - 1 = 0.010025; round trip wins even though the
	// forward simple spread (100.5 vs 110) is larger in USD terms.
	assert.Equal(t, domain.OppRoundTrip, opp.Kind)
	assert.Equal(t, "jupiter", opp.BuyVenue)
	assert.Equal(t, "raydium", opp.SellVenue)
	assert.InDelta(t, 10.025, opp.EstProfitUsd, 0.01)
}

func TestEvaluateRoundTripRequiresProductAboveOne(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{
		"SOL->USDC": 99.5,
		"USDC->SOL": 0.00995,
	}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{
		"SOL->USDC": 99.5,
		"USDC->SOL": 0.00995,
	}}
	d := newTestDetector(t, a, b, nil)

	// 99.5*0.00995 = 0.990 on both loops; no loop closes above 1 and the
	// venues agree on price, so nothing qualifies.
	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestEvaluateBpsFloor(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{"SOL->USDC": 100}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	d := newTestDetector(t, a, b, func(cfg *DetectorConfig) {
		cfg.MinProfitBps = 300
	})

	// 198 bps of edge is below the configured 300 bps floor.
	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestEvaluateUnknownSymbol(t *testing.T) {
	a := &fakeVenue{name: "jupiter"}
	b := &fakeVenue{name: "raydium"}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "WAT", "USDC", 100, 1000)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestEvaluateConnectivityGateAborts(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{"SOL->USDC": 100}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	gateErr := errors.New("endpoint unreachable")
	d := newTestDetector(t, a, b, func(cfg *DetectorConfig) {
		cfg.Prober = &fakeProber{err: gateErr}
		cfg.ProbeEveryN = 2
	})

	// First evaluation does not hit the gate.
	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	require.NotNil(t, opp)

	// Second one does, and the whole evaluation aborts.
	opp, err = d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateErr))
	assert.Nil(t, opp)
}

func TestEvaluateQuoteTransportFailureAborts(t *testing.T) {
	a := &fakeVenue{name: "jupiter", err: domain.ErrNetworkExhausted}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetworkExhausted))
	assert.Nil(t, opp)
}

func TestEvaluateNoRouteIsNotAnError(t *testing.T) {
	a := &fakeVenue{name: "jupiter", prices: map[string]float64{}}
	b := &fakeVenue{name: "raydium", prices: map[string]float64{"SOL->USDC": 102}}
	d := newTestDetector(t, a, b, nil)

	opp, err := d.Evaluate(context.Background(), "SOL", "USDC", 100, 1000)
	require.NoError(t, err)
	assert.Nil(t, opp)
}
