// Package feed streams USD reference prices from the Pyth Hermes WebSocket
// into the price cache. The run loop reads from the cache and falls back to
// the configured static reference price when the feed is behind.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fhuezo/solarb/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// PythFeed subscribes to Hermes price updates for a set of feed IDs and
// writes each update to the price cache keyed by token symbol. It reconnects
// with exponential backoff on disconnect.
type PythFeed struct {
	wsURL   string
	symbols map[string]string // feed ID (hex) -> token symbol
	cache   domain.PriceCache
	logger  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewPythFeed creates a feed for the given feed-ID-to-symbol mapping.
//
// wsURL is the Hermes endpoint, e.g. "wss://hermes.pyth.network/ws".
func NewPythFeed(wsURL string, symbols map[string]string, cache domain.PriceCache, logger *slog.Logger) (*PythFeed, error) {
	if wsURL == "" {
		return nil, fmt.Errorf("feed: WebSocket URL is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("feed: price cache is required")
	}
	return &PythFeed{
		wsURL:   wsURL,
		symbols: symbols,
		cache:   cache,
		logger:  logger.With(slog.String("component", "pyth_feed")),
		done:    make(chan struct{}),
	}, nil
}

// Run connects, subscribes, and streams until ctx is cancelled or Close is
// called. Disconnects are retried with exponential backoff.
func (f *PythFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no price feeds configured, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-f.done:
			return nil
		default:
		}

		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Close stops the feed.
func (f *PythFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// runConnection performs one connect-subscribe-read cycle. It returns when
// the connection drops or the context ends.
func (f *PythFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}

	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ids := make([]string, 0, len(f.symbols))
	for id := range f.symbols {
		ids = append(ids, id)
	}
	sub := map[string]any{"type": "subscribe", "ids": ids}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	f.logger.Info("subscribed", slog.Int("feeds", len(ids)))

	// Close the socket when the caller goes away so ReadMessage unblocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-f.done:
				conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, raw)
	}
}

// priceUpdate is the Hermes price_update envelope. The price value is a
// fixed-point integer string scaled by 10^expo.
type priceUpdate struct {
	Type      string `json:"type"`
	PriceFeed struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int    `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"price_feed"`
}

func (f *PythFeed) handleMessage(ctx context.Context, raw []byte) {
	var update priceUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return
	}
	if update.Type != "price_update" {
		return
	}

	symbol, ok := f.symbols[update.PriceFeed.ID]
	if !ok {
		return
	}

	mantissa, err := strconv.ParseFloat(update.PriceFeed.Price.Price, 64)
	if err != nil {
		f.logger.Warn("unparseable price",
			slog.String("symbol", symbol),
			slog.String("raw", update.PriceFeed.Price.Price))
		return
	}
	price := mantissa * math.Pow10(update.PriceFeed.Price.Expo)
	if price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return
	}

	ts := time.Unix(update.PriceFeed.Price.PublishTime, 0)
	if err := f.cache.SetPrice(ctx, symbol, price, ts); err != nil {
		f.logger.Warn("cache write failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()))
	}
}
