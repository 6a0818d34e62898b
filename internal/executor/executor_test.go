package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhuezo/solarb/internal/domain"
	"github.com/fhuezo/solarb/internal/token"
	"github.com/fhuezo/solarb/internal/units"
)

type scriptedVenue struct {
	name string

	quoteOut   uint64 // OutAmount returned by GetQuote; 0 = no route
	quoteErr   error
	swapResult domain.SwapResult
	swapErr    error

	quoteCalls []domain.SwapRequest // in/out/amount of each quote request
	swapCalls  []domain.SwapRequest
}

func (v *scriptedVenue) Name() string { return v.name }

func (v *scriptedVenue) GetQuote(ctx context.Context, inSym, outSym string, inAmount uint64) (*domain.Quote, error) {
	v.quoteCalls = append(v.quoteCalls, domain.SwapRequest{InSymbol: inSym, OutSymbol: outSym, InAmount: inAmount})
	if v.quoteErr != nil {
		return nil, v.quoteErr
	}
	if v.quoteOut == 0 {
		return nil, nil
	}
	return &domain.Quote{
		InSymbol:  inSym,
		OutSymbol: outSym,
		InAmount:  inAmount,
		OutAmount: v.quoteOut,
		Price:     float64(v.quoteOut) / float64(inAmount),
		Venue:     v.name,
	}, nil
}

func (v *scriptedVenue) ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	v.swapCalls = append(v.swapCalls, req)
	if v.swapErr != nil {
		return domain.SwapResult{}, v.swapErr
	}
	return v.swapResult, nil
}

type memStore struct {
	records []domain.TradeRecord
	err     error
}

func (s *memStore) Create(ctx context.Context, rec domain.TradeRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (domain.TradeRecord, error) {
	return domain.TradeRecord{}, domain.ErrNotFound
}

func (s *memStore) ListSince(ctx context.Context, since time.Time) ([]domain.TradeRecord, error) {
	return s.records, nil
}

type memAlerter struct {
	titles   []string
	messages []string
}

func (a *memAlerter) NotifyAll(ctx context.Context, title, message string) error {
	a.titles = append(a.titles, title)
	a.messages = append(a.messages, message)
	return nil
}

func testOpportunity() *domain.Opportunity {
	return &domain.Opportunity{
		ID:           "opp-1",
		Kind:         domain.OppSimpleSpread,
		BuyVenue:     "jupiter",
		SellVenue:    "raydium",
		InSymbol:     "SOL",
		OutSymbol:    "USDC",
		EstProfitUsd: 19.8,
		ProfitBps:    198,
	}
}

func newTestExecutor(t *testing.T, buy, sell *scriptedVenue, store *memStore, alerter *memAlerter, cfg Config) *Executor {
	t.Helper()
	reg, err := token.NewRegistry(nil)
	require.NoError(t, err)

	var st domain.TradeStore
	if store != nil {
		st = store
	}
	var al Alerter
	if alerter != nil {
		al = alerter
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New([]domain.VenueClient{buy, sell}, reg, st, al, cfg, logger)
}

func TestExecuteHappyPath(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   10_200_000, // 10.2 USDC for 0.1 SOL
		swapResult: domain.SwapResult{Success: true, TxSignature: "buySig", OutAmount: 10_150_000},
	}
	sell := &scriptedVenue{
		name:       "raydium",
		quoteOut:   101_000_000, // lamports back
		swapResult: domain.SwapResult{Success: true, TxSignature: "sellSig", OutAmount: 100_500_000},
	}
	store := &memStore{}
	e := newTestExecutor(t, buy, sell, store, nil, Config{SlippageBps: 50})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, domain.TradeCompleted, rec.Status)
	assert.Equal(t, "buySig", rec.BuyLeg.TxSignature)
	require.NotNil(t, rec.SellLeg)
	assert.Equal(t, "sellSig", rec.SellLeg.TxSignature)
	assert.Equal(t, 1, e.DailyCount())

	// Buy leg sized at 0.1 SOL in lamports, min output floored by 50 bps.
	require.Len(t, buy.swapCalls, 1)
	assert.Equal(t, units.ToBaseUnits(0.1, 9), buy.swapCalls[0].InAmount)
	assert.Equal(t, units.ApplySlippage(10_200_000, 50, units.SlippageOut), buy.swapCalls[0].MinOutAmount)

	// Sell leg consumes the buy leg's reported output, swapped back.
	require.Len(t, sell.swapCalls, 1)
	assert.Equal(t, "USDC", sell.swapCalls[0].InSymbol)
	assert.Equal(t, "SOL", sell.swapCalls[0].OutSymbol)
	assert.Equal(t, uint64(10_150_000), sell.swapCalls[0].InAmount)

	require.Len(t, store.records, 1)
	assert.Equal(t, domain.TradeCompleted, store.records[0].Status)
}

func TestExecuteDryRunTakesNoAction(t *testing.T) {
	buy := &scriptedVenue{name: "jupiter", quoteOut: 1}
	sell := &scriptedVenue{name: "raydium", quoteOut: 1}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{DryRun: true})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, buy.quoteCalls)
	assert.Empty(t, sell.quoteCalls)
	assert.Equal(t, 0, e.DailyCount())
}

func TestExecuteBuyQuoteUnavailableAborts(t *testing.T) {
	buy := &scriptedVenue{name: "jupiter"} // no route
	sell := &scriptedVenue{name: "raydium", quoteOut: 1}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, buy.swapCalls)
	assert.Equal(t, 0, e.DailyCount())
}

func TestExecuteBuySwapFailureAbortsWithoutCommit(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   10_000_000,
		swapResult: domain.SwapResult{Success: false, Description: "slippage exceeded"},
	}
	sell := &scriptedVenue{name: "raydium", quoteOut: 1}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, sell.quoteCalls, "no sell leg after a failed buy")
	assert.Equal(t, 0, e.DailyCount())
}

func TestExecuteSellFailureRaisesUnhedgedAlarm(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   10_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "A", OutAmount: 9_990_000},
	}
	sell := &scriptedVenue{
		name:       "raydium",
		quoteOut:   99_000_000,
		swapResult: domain.SwapResult{Success: false, Description: "pool drained"},
	}
	store := &memStore{}
	alerter := &memAlerter{}
	e := newTestExecutor(t, buy, sell, store, alerter, Config{})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err, "a sell failure must not surface as an error")
	require.NotNil(t, rec)

	assert.Equal(t, domain.TradeUnhedged, rec.Status)
	assert.Equal(t, "A", rec.BuyLeg.TxSignature)
	assert.Nil(t, rec.SellLeg)
	assert.Equal(t, 1, e.DailyCount(), "the buy leg committed")

	require.Len(t, alerter.titles, 1)
	assert.Equal(t, "UNHEDGED POSITION", alerter.titles[0])
	assert.Contains(t, alerter.messages[0], "A", "alarm must reference the buy tx")

	require.Len(t, store.records, 1)
	assert.Equal(t, domain.TradeUnhedged, store.records[0].Status)
}

func TestExecuteDailyCap(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   10_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "b1", OutAmount: 9_990_000},
	}
	sell := &scriptedVenue{
		name:       "raydium",
		quoteOut:   99_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "s1", OutAmount: 100_100_000},
	}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{MaxDailyTrades: 1})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, e.DailyCount())

	// Cap reached: the next cycle aborts before any quote is requested.
	quoteCallsBefore := len(buy.quoteCalls)
	rec, err = e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Len(t, buy.quoteCalls, quoteCallsBefore)
}

func TestExecuteDailyWindowRollsOver(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   10_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "b1", OutAmount: 9_990_000},
	}
	sell := &scriptedVenue{
		name:       "raydium",
		quoteOut:   99_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "s1", OutAmount: 100_100_000},
	}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{MaxDailyTrades: 1})

	day1 := time.Date(2025, 3, 1, 23, 50, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return day1 })

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, e.DailyCount())

	// Past midnight UTC the window resets and trading resumes.
	e.SetClock(func() time.Time { return day1.Add(20 * time.Minute) })
	rec, err = e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, e.DailyCount())
}

func TestExecuteCooldownAfterDesignatedVenue(t *testing.T) {
	buy := &scriptedVenue{
		name:       "raydium",
		quoteOut:   10_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "b1", OutAmount: 9_990_000},
	}
	sell := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   99_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "s1", OutAmount: 100_100_000},
	}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{
		CooldownVenue: "jupiter",
		Cooldown:      30 * time.Millisecond,
	})

	opp := testOpportunity()
	opp.BuyVenue, opp.SellVenue = "raydium", "jupiter"

	start := time.Now()
	rec, err := e.Execute(context.Background(), opp)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestExecuteNonSolInputSizesOneToken(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   9_900_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "b1", OutAmount: 9_900_000},
	}
	sell := &scriptedVenue{
		name:       "raydium",
		quoteOut:   1_010_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "s1", OutAmount: 1_010_000},
	}
	e := newTestExecutor(t, buy, sell, nil, nil, Config{})

	opp := testOpportunity()
	opp.InSymbol, opp.OutSymbol = "USDC", "SOL"

	rec, err := e.Execute(context.Background(), opp)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, buy.quoteCalls, 1)
	assert.Equal(t, uint64(1_000_000), buy.quoteCalls[0].InAmount, "one whole USDC")
}

func TestExecuteStoreFailureDoesNotFailTrade(t *testing.T) {
	buy := &scriptedVenue{
		name:       "jupiter",
		quoteOut:   10_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "b1", OutAmount: 9_990_000},
	}
	sell := &scriptedVenue{
		name:       "raydium",
		quoteOut:   99_000_000,
		swapResult: domain.SwapResult{Success: true, TxSignature: "s1", OutAmount: 100_100_000},
	}
	store := &memStore{err: errors.New("db down")}
	e := newTestExecutor(t, buy, sell, store, nil, Config{})

	rec, err := e.Execute(context.Background(), testOpportunity())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.TradeCompleted, rec.Status)
}
