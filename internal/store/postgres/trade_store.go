package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhuezo/solarb/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. A trade is one
// row; the two legs live in prefixed column groups, the sell group nullable
// for unhedged trades.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, opportunity_id, kind, buy_venue, sell_venue,
	est_profit_usd, status, executed_at,
	buy_in_symbol, buy_out_symbol, buy_in_amount, buy_out_amount,
	buy_min_out_amount, buy_tx_signature,
	sell_in_symbol, sell_out_symbol, sell_in_amount, sell_out_amount,
	sell_min_out_amount, sell_tx_signature`

// Create inserts one executed trade record.
func (s *TradeStore) Create(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, opportunity_id, kind, buy_venue, sell_venue,
			est_profit_usd, status, executed_at,
			buy_in_symbol, buy_out_symbol, buy_in_amount, buy_out_amount,
			buy_min_out_amount, buy_tx_signature,
			sell_in_symbol, sell_out_symbol, sell_in_amount, sell_out_amount,
			sell_min_out_amount, sell_tx_signature
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14,
			$15, $16, $17, $18,
			$19, $20
		)`

	var (
		sellIn, sellOut       *string
		sellInAmt, sellOutAmt *int64
		sellMinOut            *int64
		sellTx                *string
	)
	if leg := rec.SellLeg; leg != nil {
		sellIn = &leg.InSymbol
		sellOut = &leg.OutSymbol
		inAmt, outAmt, minOut := int64(leg.InAmount), int64(leg.OutAmount), int64(leg.MinOutAmount)
		sellInAmt, sellOutAmt, sellMinOut = &inAmt, &outAmt, &minOut
		sellTx = &leg.TxSignature
	}

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.OpportunityID, string(rec.Kind), rec.BuyVenue, rec.SellVenue,
		rec.EstProfitUsd, string(rec.Status), rec.ExecutedAt,
		rec.BuyLeg.InSymbol, rec.BuyLeg.OutSymbol, int64(rec.BuyLeg.InAmount), int64(rec.BuyLeg.OutAmount),
		int64(rec.BuyLeg.MinOutAmount), rec.BuyLeg.TxSignature,
		sellIn, sellOut, sellInAmt, sellOutAmt,
		sellMinOut, sellTx,
	)
	if err != nil {
		return fmt.Errorf("postgres: create trade %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID returns one trade record, or domain.ErrNotFound.
func (s *TradeStore) GetByID(ctx context.Context, id string) (domain.TradeRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tradeSelectCols+` FROM trades WHERE id = $1`, id)

	rec, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	return rec, nil
}

// ListSince returns trades executed at or after the given time, newest first.
func (s *TradeStore) ListSince(ctx context.Context, since time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE executed_at >= $1 ORDER BY executed_at DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades since: %w", err)
	}
	defer rows.Close()

	var recs []domain.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanTrade(row pgx.Row) (domain.TradeRecord, error) {
	var (
		rec                   domain.TradeRecord
		kind, status          string
		buyIn, buyOut, buyTx  string
		buyInAmt, buyOutAmt   int64
		buyMinOut             int64
		sellIn, sellOut       *string
		sellInAmt, sellOutAmt *int64
		sellMinOut            *int64
		sellTx                *string
	)

	err := row.Scan(
		&rec.ID, &rec.OpportunityID, &kind, &rec.BuyVenue, &rec.SellVenue,
		&rec.EstProfitUsd, &status, &rec.ExecutedAt,
		&buyIn, &buyOut, &buyInAmt, &buyOutAmt,
		&buyMinOut, &buyTx,
		&sellIn, &sellOut, &sellInAmt, &sellOutAmt,
		&sellMinOut, &sellTx,
	)
	if err != nil {
		return domain.TradeRecord{}, err
	}

	rec.Kind = domain.OpportunityKind(kind)
	rec.Status = domain.TradeStatus(status)
	rec.BuyLeg = domain.TradeLeg{
		Venue:        rec.BuyVenue,
		InSymbol:     buyIn,
		OutSymbol:    buyOut,
		InAmount:     uint64(buyInAmt),
		OutAmount:    uint64(buyOutAmt),
		MinOutAmount: uint64(buyMinOut),
		TxSignature:  buyTx,
	}

	if sellIn != nil {
		leg := domain.TradeLeg{
			Venue:       rec.SellVenue,
			InSymbol:    *sellIn,
			TxSignature: deref(sellTx),
		}
		if sellOut != nil {
			leg.OutSymbol = *sellOut
		}
		if sellInAmt != nil {
			leg.InAmount = uint64(*sellInAmt)
		}
		if sellOutAmt != nil {
			leg.OutAmount = uint64(*sellOutAmt)
		}
		if sellMinOut != nil {
			leg.MinOutAmount = uint64(*sellMinOut)
		}
		rec.SellLeg = &leg
	}

	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
