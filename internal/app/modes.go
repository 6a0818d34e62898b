package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fhuezo/solarb/internal/archive"
	"github.com/fhuezo/solarb/internal/domain"
)

// pairLockTTL bounds how long a crashed instance keeps the pair locked.
const pairLockTTL = time.Hour

// RunMode starts the full trading loop: reference price feed, daily trade
// archiver, and the detect-execute cycle. A per-pair Redis lock guarantees at
// most one live instance trades the pair.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode",
		slog.String("base", a.cfg.Arbitrage.BaseSymbol),
		slog.String("quote", a.cfg.Arbitrage.QuoteSymbol),
		slog.Bool("dry_run", a.cfg.Executor.DryRun),
	)

	// Trading with an unreachable venue is worse than not starting.
	if err := deps.Prober.Check(ctx); err != nil {
		return fmt.Errorf("run mode: startup connectivity check: %w", err)
	}
	if err := deps.RPC.GetHealth(ctx); err != nil {
		return fmt.Errorf("run mode: solana rpc health: %w", err)
	}

	pairKey := fmt.Sprintf("runner:%s-%s", a.cfg.Arbitrage.BaseSymbol, a.cfg.Arbitrage.QuoteSymbol)
	release, err := deps.LockManager.Acquire(ctx, pairKey, pairLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("run mode: another instance is already trading %s-%s",
				a.cfg.Arbitrage.BaseSymbol, a.cfg.Arbitrage.QuoteSymbol)
		}
		return fmt.Errorf("run mode: acquire pair lock: %w", err)
	}
	defer release()

	g, ctx := errgroup.WithContext(ctx)

	if deps.Feed != nil {
		g.Go(func() error {
			defer deps.Feed.Close()
			return deps.Feed.Run(ctx)
		})
	}

	if deps.BlobWriter != nil && deps.TradeStore != nil {
		arch, err := archive.New(deps.TradeStore, deps.BlobWriter, a.cfg.Archive.Interval.Duration, a.logger)
		if err != nil {
			return fmt.Errorf("run mode: archiver: %w", err)
		}
		g.Go(func() error {
			return arch.Run(ctx)
		})
	}

	g.Go(func() error {
		return a.cycleLoop(ctx, deps)
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// MonitorMode runs detection only. The executor is wired in forced dry-run,
// so every cycle logs what it would have traded and nothing else.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.String("base", a.cfg.Arbitrage.BaseSymbol),
		slog.String("quote", a.cfg.Arbitrage.QuoteSymbol),
	)

	if err := deps.Prober.Check(ctx); err != nil {
		return fmt.Errorf("monitor mode: startup connectivity check: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if deps.Feed != nil {
		g.Go(func() error {
			defer deps.Feed.Close()
			return deps.Feed.Run(ctx)
		})
	}

	g.Go(func() error {
		return a.cycleLoop(ctx, deps)
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// cycleLoop evaluates the pair once per configured interval and hands every
// surviving opportunity to the executor. Cycle failures are logged and the
// next tick proceeds; only context cancellation stops the loop.
func (a *App) cycleLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Arbitrage.Interval.Duration
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.runCycle(ctx, deps)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.runCycle(ctx, deps)
		}
	}
}

func (a *App) runCycle(ctx context.Context, deps *Dependencies) {
	refPrice := a.referencePrice(ctx, deps)

	opp, err := deps.Detector.Evaluate(ctx,
		a.cfg.Arbitrage.BaseSymbol,
		a.cfg.Arbitrage.QuoteSymbol,
		refPrice,
		a.cfg.Arbitrage.NotionalUsd,
	)
	if err != nil {
		a.logger.WarnContext(ctx, "evaluation cycle failed, skipping",
			slog.String("error", err.Error()),
		)
		return
	}
	if opp == nil {
		return
	}

	rec, err := deps.Executor.Execute(ctx, opp)
	if err != nil {
		a.logger.ErrorContext(ctx, "execution failed",
			slog.String("opp_id", opp.ID),
			slog.String("error", err.Error()),
		)
		_ = deps.Notifier.Notify(ctx, "trade_failed", "Trade failed",
			fmt.Sprintf("Opportunity %s (%s): %v", opp.ID, opp.Kind, err))
		return
	}
	if rec == nil {
		// Aborted before committing capital (cap, dry run, stale quote).
		return
	}

	switch rec.Status {
	case domain.TradeCompleted:
		_ = deps.Notifier.Notify(ctx, "trade_completed", "Trade completed",
			fmt.Sprintf("%s: bought on %s, sold on %s, est profit $%.2f",
				rec.ID, rec.BuyVenue, rec.SellVenue, rec.EstProfitUsd))
	case domain.TradeUnhedged:
		// The executor already raised the unfiltered alarm.
		a.logger.ErrorContext(ctx, "trade left unhedged",
			slog.String("trade_id", rec.ID),
			slog.String("buy_venue", rec.BuyVenue),
		)
	}
}

// referencePrice returns the freshest cached price for the base token, or the
// configured static fallback when the cache is empty or stale.
func (a *App) referencePrice(ctx context.Context, deps *Dependencies) float64 {
	price, ts, err := deps.PriceCache.GetPrice(ctx, a.cfg.Arbitrage.BaseSymbol)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.WarnContext(ctx, "price cache read failed, using static reference",
				slog.String("error", err.Error()),
			)
		}
		return a.cfg.Arbitrage.ReferencePriceUsd
	}
	if age := time.Since(ts); age > a.cfg.Arbitrage.MaxPriceAge.Duration {
		a.logger.WarnContext(ctx, "cached price is stale, using static reference",
			slog.Duration("age", age),
		)
		return a.cfg.Arbitrage.ReferencePriceUsd
	}
	return price
}
