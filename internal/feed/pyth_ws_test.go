package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhuezo/solarb/internal/domain"
)

type memCache struct {
	mu     sync.Mutex
	prices map[string]float64
	stamps map[string]time.Time
}

func newMemCache() *memCache {
	return &memCache{prices: map[string]float64{}, stamps: map[string]time.Time{}}
}

func (c *memCache) SetPrice(_ context.Context, symbol string, priceUsd float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = priceUsd
	c.stamps[symbol] = ts
	return nil
}

func (c *memCache) GetPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[symbol]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, c.stamps[symbol], nil
}

func (c *memCache) get(symbol string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[symbol]
	return p, ok
}

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, nil))
}

const solFeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

func TestFeedWritesPriceUpdatesToCache(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub struct {
			Type string   `json:"type"`
			IDs  []string `json:"ids"`
		}
		require.NoError(t, conn.ReadJSON(&sub))
		assert.Equal(t, "subscribe", sub.Type)
		assert.Equal(t, []string{solFeedID}, sub.IDs)

		// 15015000000 * 10^-8 = 150.15 USD
		update := `{"type":"price_update","price_feed":{"id":"` + solFeedID +
			`","price":{"price":"15015000000","conf":"1","expo":-8,"publish_time":1700000000}}}`
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(update)))

		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cache := newMemCache()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	f, err := NewPythFeed(wsURL, map[string]string{solFeedID: "SOL"}, cache, testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := cache.get("SOL")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	price, ts, err := cache.GetPrice(context.Background(), "SOL")
	require.NoError(t, err)
	assert.InDelta(t, 150.15, price, 1e-9)
	assert.Equal(t, int64(1700000000), ts.Unix())

	f.Close()
}

func TestFeedIgnoresUnknownAndMalformedMessages(t *testing.T) {
	cache := newMemCache()
	f, err := NewPythFeed("ws://example.invalid/ws", map[string]string{solFeedID: "SOL"}, cache, testLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	f.handleMessage(ctx, []byte(`{"type":"response","status":"success"}`))
	f.handleMessage(ctx, []byte(`not json`))
	f.handleMessage(ctx, []byte(`{"type":"price_update","price_feed":{"id":"other","price":{"price":"1","expo":0}}}`))
	f.handleMessage(ctx, []byte(`{"type":"price_update","price_feed":{"id":"`+solFeedID+
		`","price":{"price":"bogus","expo":0}}}`))
	f.handleMessage(ctx, []byte(`{"type":"price_update","price_feed":{"id":"`+solFeedID+
		`","price":{"price":"-5","expo":0}}}`))

	_, ok := cache.get("SOL")
	assert.False(t, ok)
}

func TestFeedRequiresCacheAndURL(t *testing.T) {
	_, err := NewPythFeed("", nil, newMemCache(), testLogger(t))
	require.Error(t, err)

	_, err = NewPythFeed("ws://host/ws", nil, nil, testLogger(t))
	require.Error(t, err)
}

// testWriter routes feed log output through t.Log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
