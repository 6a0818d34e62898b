// Package netx is the network resilience layer: bounded retry with
// exponential backoff and jitter, timeout-bounded JSON calls, and a
// connectivity prober used as a startup and in-loop circuit breaker.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/fhuezo/solarb/internal/domain"
)

// RetryPolicy bounds one logical call: up to MaxRetries+1 attempts, each
// limited to Timeout, with exponential backoff between failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Timeout    time.Duration
	// Jitter is the upper bound of the uniform random delay added to each
	// backoff. Zero keeps backoff deterministic (used by tests).
	Jitter time.Duration
}

// DefaultPolicy matches the bot's standard read path: 3 retries, 1s base,
// 15s cap, 10s per-attempt timeout, up to 1s jitter.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   15 * time.Second,
		Timeout:    10 * time.Second,
		Jitter:     time.Second,
	}
}

// ProbePolicy is the tight policy used by connectivity probes: one retry,
// short timeout, no long backoff.
func ProbePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 1,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   time.Second,
		Timeout:    3 * time.Second,
		Jitter:     100 * time.Millisecond,
	}
}

// StatusError is an HTTP response outside the 2xx range. Client errors other
// than 429 are permanent: retrying them cannot help, so Do fails fast and
// does not translate them into a network-exhaustion condition.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

// ExhaustedError reports that every attempt of a call failed. It matches
// domain.ErrNetworkExhausted under errors.Is and carries the last cause.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("netx: %d attempts exhausted: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

func (e *ExhaustedError) Is(target error) bool { return target == domain.ErrNetworkExhausted }

// Do runs op under the policy. Each attempt gets its own timeout-bounded
// context; a timed-out attempt counts as a failure. Between failed attempts
// (except after the last) it sleeps min(BaseDelay*2^(attempt-1)+jitter,
// MaxDelay). After the final failure it returns an ExhaustedError.
func Do(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	attempts := policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if policy.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		}
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.permanent() {
			return err
		}

		if ctx.Err() != nil {
			return &ExhaustedError{Attempts: attempt, Cause: ctx.Err()}
		}
		if attempt == attempts {
			break
		}

		delay := backoff(policy, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &ExhaustedError{Attempts: attempt, Cause: ctx.Err()}
		case <-timer.C:
		}
	}

	return &ExhaustedError{Attempts: attempts, Cause: lastErr}
}

// backoff computes the sleep before the next attempt after the given failed
// attempt number (1-based).
func backoff(policy RetryPolicy, attempt int) time.Duration {
	delay := policy.BaseDelay << uint(attempt-1)
	if delay < 0 {
		delay = policy.MaxDelay
	}
	if policy.Jitter > 0 {
		delay += time.Duration(rand.Int64N(int64(policy.Jitter)))
	}
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// GetJSON fetches url and decodes the 2xx response body into out, retrying
// under the policy. A non-2xx status or an undecodable body counts as a
// failed attempt.
func GetJSON(ctx context.Context, client *http.Client, policy RetryPolicy, url string, out any) error {
	return Do(ctx, policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("netx: create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return roundTrip(client, req, out)
	})
}

// PostJSON posts body as JSON to url and decodes the 2xx response into out,
// retrying under the policy.
func PostJSON(ctx context.Context, client *http.Client, policy RetryPolicy, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("netx: marshal body: %w", err)
	}
	return Do(ctx, policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("netx: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return roundTrip(client, req, out)
	})
}

func roundTrip(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("netx: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("netx: %s %s: %w", req.Method, req.URL, &StatusError{Code: resp.StatusCode, Body: string(snippet)})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("netx: %s %s: decode response: %w", req.Method, req.URL, err)
	}
	return nil
}
