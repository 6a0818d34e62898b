package netx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhuezo/solarb/internal/domain"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    50 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestDoRecoversAfterFailures(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestDoExhaustsAfterExactlyMaxRetriesPlusOne(t *testing.T) {
	var calls int32
	cause := errors.New("connection refused")
	start := time.Now()
	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return cause
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls)
	assert.True(t, errors.Is(err, domain.ErrNetworkExhausted))
	assert.True(t, errors.Is(err, cause))

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)

	// Two backoffs, each capped by MaxDelay (jitter disabled).
	assert.Less(t, time.Since(start), 2*5*time.Millisecond+40*time.Millisecond)
}

func TestDoCountsTimeoutAsFailure(t *testing.T) {
	var calls int32
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Timeout: 10 * time.Millisecond}
	err := Do(context.Background(), policy, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls)
	assert.True(t, errors.Is(err, domain.ErrNetworkExhausted))
}

func TestDoStopsWhenParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	err := Do(ctx, fastPolicy(5), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		cancel()
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
	assert.True(t, errors.Is(err, domain.ErrNetworkExhausted))
}

func TestGetJSONRetriesNonSuccessStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	err := GetJSON(context.Background(), srv.Client(), fastPolicy(3), srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, int32(3), hits)
}

func TestGetJSONDoesNotRetryClientError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "no route for pair", http.StatusBadRequest)
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), fastPolicy(3), srv.URL, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNetworkExhausted))

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusBadRequest, status.Code)
	assert.Contains(t, status.Body, "no route")
	assert.Equal(t, int32(1), hits)
}

func TestGetJSONFailsClosedOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":`))
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.Client(), fastPolicy(1), srv.URL, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetworkExhausted))
}

func TestProberFailsWhenAnyEndpointDown(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	p := NewProber([]string{up.URL, down.URL}, logger)
	p.SetPolicy(fastPolicy(1))
	err := p.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), down.URL)

	p = NewProber([]string{up.URL}, logger)
	p.SetPolicy(fastPolicy(1))
	require.NoError(t, p.Check(context.Background()))
}

func TestProberTreatsClientErrorAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProber([]string{srv.URL}, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	p.SetPolicy(fastPolicy(1))
	assert.NoError(t, p.Check(context.Background()))
}

// testWriter routes handler output through t.Log so failures show the probe log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
