package netx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Prober checks reachability of a fixed set of critical endpoints. It is used
// as a hard startup gate and periodically inside the evaluation loop; one
// unreachable endpoint fails the whole check.
type Prober struct {
	client    *http.Client
	policy    RetryPolicy
	endpoints []string
	logger    *slog.Logger
}

// NewProber creates a Prober over the given endpoints using ProbePolicy.
func NewProber(endpoints []string, logger *slog.Logger) *Prober {
	return &Prober{
		client:    &http.Client{Timeout: 5 * time.Second},
		policy:    ProbePolicy(),
		endpoints: endpoints,
		logger:    logger.With(slog.String("component", "prober")),
	}
}

// SetPolicy overrides the probe retry policy. Must be called before Check.
func (p *Prober) SetPolicy(policy RetryPolicy) { p.policy = policy }

// Check probes every endpoint sequentially. Any HTTP response, including a
// 4xx, counts as reachable; only transport failures and 5xx responses count
// against an endpoint.
func (p *Prober) Check(ctx context.Context) error {
	start := time.Now()
	for _, endpoint := range p.endpoints {
		if err := p.probe(ctx, endpoint); err != nil {
			p.logger.WarnContext(ctx, "connectivity probe failed",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("netx: connectivity check: %s: %w", endpoint, err)
		}
	}
	p.logger.DebugContext(ctx, "connectivity check passed",
		slog.Int("endpoints", len(p.endpoints)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Prober) probe(ctx context.Context, endpoint string) error {
	return Do(ctx, p.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("netx: create probe request: %w", err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("netx: probe %s: %w", endpoint, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

		if resp.StatusCode >= 500 {
			return fmt.Errorf("netx: probe %s: server status %d", endpoint, resp.StatusCode)
		}
		return nil
	})
}
