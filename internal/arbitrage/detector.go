package arbitrage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fhuezo/solarb/internal/domain"
	"github.com/fhuezo/solarb/internal/units"
)

// ConnectivityChecker is the circuit-breaker gate the detector consults
// before trusting the network. Implemented by netx.Prober.
type ConnectivityChecker interface {
	Check(ctx context.Context) error
}

// DetectorConfig configures the opportunity detector.
type DetectorConfig struct {
	VenueA   domain.VenueClient
	VenueB   domain.VenueClient
	Registry domain.TokenRegistry
	Guard    *Guard
	Prober   ConnectivityChecker
	// ProbeEveryN runs the connectivity gate on every Nth evaluation; zero
	// disables the in-loop probe.
	ProbeEveryN int
	// MinProfitUsd is the required profit floor for any opportunity.
	MinProfitUsd float64
	// MinProfitBps is an optional additional floor; zero disables it.
	MinProfitBps float64
	Logger       *slog.Logger
}

// Detector reconciles quotes from two venues into at most one scored
// opportunity per evaluation. It deliberately never splits capital across
// multiple simultaneously detected candidates.
type Detector struct {
	cfg    DetectorConfig
	logger *slog.Logger
	cycles int
}

// NewDetector creates a Detector.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("component", "detector")),
	}
}

// candidate is an unscored-to-scored intermediate before guard and threshold
// gates.
type candidate struct {
	kind      domain.OpportunityKind
	buy       domain.Quote
	sell      domain.Quote
	inToken   domain.TokenInfo
	profitUsd float64
	profitBps float64
	// guardPrice1/2 are the two views of the same conceptual rate handed to
	// the divergence check. For round trips the sell side is inverted so
	// both are expressed in the buy direction.
	guardPrice1 float64
	guardPrice2 float64
	label       string
}

// Evaluate requests probe quotes for the pair in both directions from both
// venues, derives simple-spread and round-trip candidates, and returns the
// best candidate that survives the plausibility guard and profit thresholds,
// or nil when nothing qualifies. A connectivity or quote-transport failure
// aborts the evaluation with an error; the caller skips the cycle.
func (d *Detector) Evaluate(ctx context.Context, baseSymbol, quoteSymbol string, refPriceUsd, notionalUsd float64) (*domain.Opportunity, error) {
	base, ok := d.cfg.Registry.Lookup(baseSymbol)
	if !ok {
		d.logger.InfoContext(ctx, "unknown base symbol, skipping", slog.String("symbol", baseSymbol))
		return nil, nil
	}
	quote, ok := d.cfg.Registry.Lookup(quoteSymbol)
	if !ok {
		d.logger.InfoContext(ctx, "unknown quote symbol, skipping", slog.String("symbol", quoteSymbol))
		return nil, nil
	}

	if !d.cfg.Guard.PriceIsPlausible(refPriceUsd, baseSymbol+" reference price") {
		return nil, nil
	}

	d.cycles++
	if d.cfg.Prober != nil && d.cfg.ProbeEveryN > 0 && d.cycles%d.cfg.ProbeEveryN == 0 {
		if err := d.cfg.Prober.Check(ctx); err != nil {
			return nil, fmt.Errorf("detector: connectivity gate: %w", err)
		}
	}

	// One whole token per direction; probe size is independent of the trade
	// notional.
	baseProbe := units.ToBaseUnits(1, base.Decimals)
	quoteProbe := units.ToBaseUnits(1, quote.Decimals)

	fwdA, err := d.probeQuote(ctx, d.cfg.VenueA, base.Symbol, quote.Symbol, baseProbe)
	if err != nil {
		return nil, err
	}
	fwdB, err := d.probeQuote(ctx, d.cfg.VenueB, base.Symbol, quote.Symbol, baseProbe)
	if err != nil {
		return nil, err
	}
	revA, err := d.probeQuote(ctx, d.cfg.VenueA, quote.Symbol, base.Symbol, quoteProbe)
	if err != nil {
		return nil, err
	}
	revB, err := d.probeQuote(ctx, d.cfg.VenueB, quote.Symbol, base.Symbol, quoteProbe)
	if err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "cycle quotes",
		slog.String("pair", base.Symbol+"/"+quote.Symbol),
		slog.Any("forward_a", quotePrice(fwdA)),
		slog.Any("forward_b", quotePrice(fwdB)),
		slog.Any("reverse_a", quotePrice(revA)),
		slog.Any("reverse_b", quotePrice(revB)),
	)

	var simple, roundTrips []candidate
	if c := d.simpleSpread(fwdA, fwdB, base, "forward "+base.Symbol+"->"+quote.Symbol, notionalUsd); c != nil {
		simple = append(simple, *c)
	}
	if c := d.simpleSpread(revA, revB, quote, "reverse "+quote.Symbol+"->"+base.Symbol, notionalUsd); c != nil {
		simple = append(simple, *c)
	}
	if c := d.roundTrip(fwdA, revB, base, notionalUsd); c != nil {
		roundTrips = append(roundTrips, *c)
	}
	if c := d.roundTrip(fwdB, revA, base, notionalUsd); c != nil {
		roundTrips = append(roundTrips, *c)
	}

	best := d.selectBest(roundTrips, simple)
	if best == nil {
		return nil, nil
	}

	size := units.ToBaseUnits(notionalUsd/refPriceUsd, best.inToken.Decimals)
	opp := &domain.Opportunity{
		ID:              uuid.New().String(),
		Kind:            best.kind,
		BuyVenue:        best.buy.Venue,
		SellVenue:       best.sell.Venue,
		InSymbol:        best.buy.InSymbol,
		OutSymbol:       best.buy.OutSymbol,
		SizeInBaseUnits: size,
		EstProfitUsd:    best.profitUsd,
		ProfitBps:       best.profitBps,
		BuyQuote:        best.buy,
		SellQuote:       best.sell,
	}
	d.logger.InfoContext(ctx, "opportunity selected",
		slog.String("id", opp.ID),
		slog.String("kind", string(opp.Kind)),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
		slog.Float64("est_profit_usd", opp.EstProfitUsd),
		slog.Float64("profit_bps", opp.ProfitBps),
	)
	return opp, nil
}

// probeQuote fetches one directional quote. A nil quote (no route) is not an
// error; a transport failure aborts the evaluation because the cycle cannot
// be trusted half-blind.
func (d *Detector) probeQuote(ctx context.Context, venue domain.VenueClient, inSym, outSym string, inAmount uint64) (*domain.Quote, error) {
	q, err := venue.GetQuote(ctx, inSym, outSym, inAmount)
	if err != nil {
		return nil, fmt.Errorf("detector: %s quote %s->%s: %w", venue.Name(), inSym, outSym, err)
	}
	if q == nil {
		d.logger.DebugContext(ctx, "no route",
			slog.String("venue", venue.Name()),
			slog.String("in", inSym),
			slog.String("out", outSym),
		)
	}
	return q, nil
}

// simpleSpread builds a candidate from two same-direction quotes when the
// venues disagree on price: buy where it is cheap, sell where it is dear.
func (d *Detector) simpleSpread(qa, qb *domain.Quote, inToken domain.TokenInfo, label string, notionalUsd float64) *candidate {
	if qa == nil || qb == nil {
		return nil
	}
	buy, sell := qa, qb
	if buy.Price > sell.Price {
		buy, sell = sell, buy
	}
	delta := sell.Price - buy.Price
	if delta <= 0 {
		return nil
	}
	edge := delta / ((buy.Price + sell.Price) / 2)
	c := candidate{
		kind:        domain.OppSimpleSpread,
		buy:         *buy,
		sell:        *sell,
		inToken:     inToken,
		profitUsd:   edge * notionalUsd,
		profitBps:   edge * 10000,
		guardPrice1: buy.Price,
		guardPrice2: sell.Price,
		label:       label,
	}
	return d.gate(&c)
}

// roundTrip composes a forward quote on one venue with a reverse quote on the
// other; a rate product above 1 closes a profitable loop back to the starting
// asset.
func (d *Detector) roundTrip(fwd, rev *domain.Quote, inToken domain.TokenInfo, notionalUsd float64) *candidate {
	if fwd == nil || rev == nil {
		return nil
	}
	if fwd.Price <= 0 || rev.Price <= 0 {
		return nil
	}
	edge := fwd.Price*rev.Price - 1
	if edge <= 0 {
		return nil
	}
	c := candidate{
		kind:      domain.OppRoundTrip,
		buy:       *fwd,
		sell:      *rev,
		inToken:   inToken,
		profitUsd: edge * notionalUsd,
		profitBps: edge * 10000,
		// Express both legs in the forward direction so the divergence
		// check compares the same conceptual rate.
		guardPrice1: fwd.Price,
		guardPrice2: 1 / rev.Price,
		label:       "round trip " + fwd.Venue + "->" + rev.Venue,
	}
	return d.gate(&c)
}

// gate applies the plausibility guard and the configured profit floors.
func (d *Detector) gate(c *candidate) *candidate {
	if !d.cfg.Guard.OpportunityIsPlausible(c.profitUsd, c.profitBps/100, c.guardPrice1, c.guardPrice2, c.label) {
		return nil
	}
	if c.profitUsd < d.cfg.MinProfitUsd {
		d.logger.Debug("candidate below profit floor",
			slog.String("label", c.label),
			slog.Float64("profit_usd", c.profitUsd),
			slog.Float64("min_profit_usd", d.cfg.MinProfitUsd),
		)
		return nil
	}
	if d.cfg.MinProfitBps > 0 && c.profitBps < d.cfg.MinProfitBps {
		d.logger.Debug("candidate below bps floor",
			slog.String("label", c.label),
			slog.Float64("profit_bps", c.profitBps),
			slog.Float64("min_profit_bps", d.cfg.MinProfitBps),
		)
		return nil
	}
	return c
}

// selectBest keeps the highest-profit round trip; simple spreads are the
// fallback, forward direction first.
func (d *Detector) selectBest(roundTrips, simple []candidate) *candidate {
	var best *candidate
	for i := range roundTrips {
		if best == nil || roundTrips[i].profitUsd > best.profitUsd {
			best = &roundTrips[i]
		}
	}
	if best != nil {
		return best
	}
	if len(simple) > 0 {
		return &simple[0]
	}
	return nil
}

func quotePrice(q *domain.Quote) any {
	if q == nil {
		return "unavailable"
	}
	return q.Price
}
