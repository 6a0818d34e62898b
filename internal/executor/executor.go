// Package executor drives the two-leg swap sequence for a chosen opportunity.
// Execution is sequential and non-atomic: the buy leg commits capital, the
// sell leg hedges it, and a sell failure leaves a real position that must be
// surfaced loudly rather than retried.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fhuezo/solarb/internal/domain"
	"github.com/fhuezo/solarb/internal/units"
)

// Alerter delivers high-severity operator alerts regardless of notification
// event filters. Implemented by notify.Notifier.
type Alerter interface {
	NotifyAll(ctx context.Context, title, message string) error
}

// Config holds the execution parameters.
type Config struct {
	// SlippageBps floors each leg's minimum acceptable output.
	SlippageBps int
	// MaxDailyTrades caps committed trades per UTC calendar day; zero means
	// unlimited.
	MaxDailyTrades int
	// DryRun logs the decision and takes no real action.
	DryRun bool
	// MaxTradeSizeSol sizes SOL-denominated legs; other input tokens fall
	// back to one whole token.
	MaxTradeSizeSol float64
	// CooldownVenue names the venue whose public API enforces external rate
	// limits; a sell leg landing there is followed by Cooldown of idle time.
	CooldownVenue string
	Cooldown      time.Duration
}

// dailyWindow tracks trades committed during one UTC calendar day. It is
// owned exclusively by the Executor and rolled lazily at cap-check time.
type dailyWindow struct {
	day   string // yyyy-mm-dd, UTC
	count int
}

// Executor runs the single-pass execution state machine. Cycles never
// overlap, so the daily window needs no locking.
type Executor struct {
	venues   map[string]domain.VenueClient
	registry domain.TokenRegistry
	store    domain.TradeStore // optional
	alerter  Alerter           // optional
	cfg      Config
	logger   *slog.Logger

	window dailyWindow
	now    func() time.Time
}

// New creates an Executor over the given venues. store and alerter may be nil.
func New(venues []domain.VenueClient, registry domain.TokenRegistry, store domain.TradeStore, alerter Alerter, cfg Config, logger *slog.Logger) *Executor {
	byName := make(map[string]domain.VenueClient, len(venues))
	for _, v := range venues {
		byName[v.Name()] = v
	}
	if cfg.MaxTradeSizeSol <= 0 {
		cfg.MaxTradeSizeSol = 0.1
	}
	return &Executor{
		venues:   byName,
		registry: registry,
		store:    store,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "executor")),
		now:      time.Now,
	}
}

// SetClock replaces the time source. Must be called before Execute; used by
// tests to drive day rollover.
func (e *Executor) SetClock(now func() time.Time) { e.now = now }

// DailyCount returns the number of trades committed in the current window.
func (e *Executor) DailyCount() int { return e.window.count }

// Execute runs the state machine for one opportunity. It returns a trade
// record when capital was committed (completed or unhedged) and nil when the
// attempt aborted beforehand. Venue failures are handled structurally; the
// returned error is reserved for transport-level problems before the commit
// point.
func (e *Executor) Execute(ctx context.Context, opp *domain.Opportunity) (*domain.TradeRecord, error) {
	log := e.logger.With(
		slog.String("opp_id", opp.ID),
		slog.String("kind", string(opp.Kind)),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
	)

	// CAP_CHECK: roll the window lazily, then enforce the cap.
	today := e.now().UTC().Format("2006-01-02")
	if e.window.day != today {
		e.window = dailyWindow{day: today}
	}
	if e.cfg.MaxDailyTrades > 0 && e.window.count >= e.cfg.MaxDailyTrades {
		log.WarnContext(ctx, "daily trade cap reached, skipping",
			slog.Int("count", e.window.count),
			slog.Int("cap", e.cfg.MaxDailyTrades),
		)
		return nil, nil
	}

	if e.cfg.DryRun {
		log.InfoContext(ctx, "dry run: would execute opportunity",
			slog.Float64("est_profit_usd", opp.EstProfitUsd),
			slog.Float64("profit_bps", opp.ProfitBps),
		)
		return nil, nil
	}

	buyVenue, ok := e.venues[opp.BuyVenue]
	if !ok {
		return nil, fmt.Errorf("executor: unknown buy venue %q", opp.BuyVenue)
	}
	sellVenue, ok := e.venues[opp.SellVenue]
	if !ok {
		return nil, fmt.Errorf("executor: unknown sell venue %q", opp.SellVenue)
	}

	// BUY_QUOTE: fresh quote for the exact trade size.
	size := e.legSize(opp.InSymbol)
	buyQuote, err := buyVenue.GetQuote(ctx, opp.InSymbol, opp.OutSymbol, size)
	if err != nil {
		return nil, fmt.Errorf("executor: buy quote on %s: %w", opp.BuyVenue, err)
	}
	if buyQuote == nil {
		log.WarnContext(ctx, "buy quote unavailable, aborting (no capital at risk)")
		return nil, nil
	}

	// BUY_EXECUTE.
	buyReq := domain.SwapRequest{
		InSymbol:     opp.InSymbol,
		OutSymbol:    opp.OutSymbol,
		InAmount:     size,
		MinOutAmount: units.ApplySlippage(buyQuote.OutAmount, e.cfg.SlippageBps, units.SlippageOut),
	}
	buyRes, err := buyVenue.ExecuteSwap(ctx, buyReq)
	if err != nil {
		return nil, fmt.Errorf("executor: buy swap on %s: %w", opp.BuyVenue, err)
	}
	if !buyRes.Success {
		log.WarnContext(ctx, "buy leg failed, aborting (no capital at risk)",
			slog.String("description", buyRes.Description),
		)
		return nil, nil
	}

	// Commit point: the position is now real and unhedged until the sell
	// leg lands.
	e.window.count++
	log.InfoContext(ctx, "buy leg committed",
		slog.String("tx", buyRes.TxSignature),
		slog.Int("daily_count", e.window.count),
	)

	rec := domain.TradeRecord{
		ID:            uuid.New().String(),
		OpportunityID: opp.ID,
		Kind:          opp.Kind,
		BuyVenue:      opp.BuyVenue,
		SellVenue:     opp.SellVenue,
		EstProfitUsd:  opp.EstProfitUsd,
		BuyLeg: domain.TradeLeg{
			Venue:        opp.BuyVenue,
			InSymbol:     opp.InSymbol,
			OutSymbol:    opp.OutSymbol,
			InAmount:     size,
			OutAmount:    buyRes.OutAmount,
			MinOutAmount: buyReq.MinOutAmount,
			TxSignature:  buyRes.TxSignature,
		},
		ExecutedAt: e.now().UTC(),
	}

	// SELL_QUOTE / SELL_EXECUTE: swap back, assuming the received amount
	// equals the buy leg's reported output.
	sellIn := buyRes.OutAmount
	if sellIn == 0 {
		sellIn = buyQuote.OutAmount
	}
	sellTx, ok := e.sellLeg(ctx, log, sellVenue, opp, sellIn, &rec)
	if !ok {
		rec.Status = domain.TradeUnhedged
		e.record(ctx, log, rec)
		return &rec, nil
	}

	rec.Status = domain.TradeCompleted
	e.record(ctx, log, rec)
	log.InfoContext(ctx, "trade completed",
		slog.String("buy_tx", buyRes.TxSignature),
		slog.String("sell_tx", sellTx),
		slog.Float64("est_profit_usd", opp.EstProfitUsd),
	)

	if e.cfg.Cooldown > 0 && opp.SellVenue == e.cfg.CooldownVenue {
		log.DebugContext(ctx, "post-trade cooldown",
			slog.String("venue", opp.SellVenue),
			slog.Duration("cooldown", e.cfg.Cooldown),
		)
		timer := time.NewTimer(e.cfg.Cooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	return &rec, nil
}

// sellLeg runs the second leg. On any failure it raises the unhedged-position
// alarm with the buy transaction reference; the caller records the trade.
func (e *Executor) sellLeg(ctx context.Context, log *slog.Logger, venue domain.VenueClient, opp *domain.Opportunity, inAmount uint64, rec *domain.TradeRecord) (string, bool) {
	fail := func(reason string) {
		log.ErrorContext(ctx, "SELL LEG FAILED AFTER COMMITTED BUY: position is unhedged",
			slog.String("reason", reason),
			slog.String("buy_tx", rec.BuyLeg.TxSignature),
			slog.String("sell_venue", opp.SellVenue),
		)
		if e.alerter != nil {
			msg := fmt.Sprintf(
				"Sell leg on %s failed after buy tx %s committed (%s). Position %d %s is unhedged; manual intervention required.",
				opp.SellVenue, rec.BuyLeg.TxSignature, reason, inAmount, opp.OutSymbol,
			)
			if err := e.alerter.NotifyAll(ctx, "UNHEDGED POSITION", msg); err != nil {
				log.ErrorContext(ctx, "unhedged alert delivery failed", slog.String("error", err.Error()))
			}
		}
	}

	quote, err := venue.GetQuote(ctx, opp.OutSymbol, opp.InSymbol, inAmount)
	if err != nil {
		fail(fmt.Sprintf("sell quote error: %v", err))
		return "", false
	}
	if quote == nil {
		fail("sell quote unavailable")
		return "", false
	}

	req := domain.SwapRequest{
		InSymbol:     opp.OutSymbol,
		OutSymbol:    opp.InSymbol,
		InAmount:     inAmount,
		MinOutAmount: units.ApplySlippage(quote.OutAmount, e.cfg.SlippageBps, units.SlippageOut),
	}
	res, err := venue.ExecuteSwap(ctx, req)
	if err != nil {
		fail(fmt.Sprintf("sell swap error: %v", err))
		return "", false
	}
	if !res.Success {
		fail("sell swap rejected: " + res.Description)
		return "", false
	}

	rec.SellLeg = &domain.TradeLeg{
		Venue:        opp.SellVenue,
		InSymbol:     opp.OutSymbol,
		OutSymbol:    opp.InSymbol,
		InAmount:     inAmount,
		OutAmount:    res.OutAmount,
		MinOutAmount: req.MinOutAmount,
		TxSignature:  res.TxSignature,
	}
	return res.TxSignature, true
}

// legSize computes the input amount for a leg in smallest units. It is never
// zero.
func (e *Executor) legSize(inSymbol string) uint64 {
	var size uint64
	if inSymbol == "SOL" {
		size = units.ToBaseUnits(e.cfg.MaxTradeSizeSol, 9)
	} else if info, ok := e.registry.Lookup(inSymbol); ok {
		size = units.ToBaseUnits(1, info.Decimals)
	}
	if size == 0 {
		size = 1
	}
	return size
}

// record persists the trade when a store is configured. Persistence problems
// never fail an executed trade.
func (e *Executor) record(ctx context.Context, log *slog.Logger, rec domain.TradeRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.Create(ctx, rec); err != nil {
		log.WarnContext(ctx, "trade record persist failed",
			slog.String("trade_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}
