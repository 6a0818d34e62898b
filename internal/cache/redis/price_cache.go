package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fhuezo/solarb/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each symbol's
// USD reference price is stored at "refprice:{SYMBOL}" with fields "price"
// and "ts" (Unix nanosecond timestamp). The feed writes, the run loop reads.
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(symbol string) string {
	return "refprice:" + strings.ToUpper(symbol)
}

// SetPrice stores the latest reference price and its publish time for a symbol.
func (pc *PriceCache) SetPrice(ctx context.Context, symbol string, priceUsd float64, ts time.Time) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(priceUsd, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(symbol), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	return nil
}

// GetPrice retrieves the latest reference price and publish time for a symbol.
// It returns domain.ErrNotFound when no price has been published.
func (pc *PriceCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(symbol)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
