// Package jupiter is the venue adapter for the Jupiter swap aggregator.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fhuezo/solarb/internal/crypto"
	"github.com/fhuezo/solarb/internal/domain"
	"github.com/fhuezo/solarb/internal/netx"
	"github.com/fhuezo/solarb/internal/platform/solana"
	"github.com/fhuezo/solarb/internal/units"
)

const venueName = "jupiter"

// rate limiter settings for the public quote API
const (
	rateKey    = "jupiter:api"
	rateLimit  = 55
	rateWindow = time.Minute
)

// Client implements domain.VenueClient against the Jupiter quote and swap
// APIs. Swap transactions are built by Jupiter, signed locally, and submitted
// through the shared RPC client.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	policy      netx.RetryPolicy
	registry    domain.TokenRegistry
	signer      *crypto.Signer
	rpc         *solana.Client
	limiter     domain.RateLimiter
	slippageBps int
	logger      *slog.Logger
}

var _ domain.VenueClient = (*Client)(nil)

// NewClient creates a Jupiter adapter.
//
// baseURL is the API root, e.g. "https://quote-api.jup.ag/v6". limiter may be
// nil, in which case requests are not throttled locally.
func NewClient(baseURL string, registry domain.TokenRegistry, signer *crypto.Signer, rpc *solana.Client, limiter domain.RateLimiter, slippageBps int, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("jupiter: base URL is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("jupiter: token registry is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("jupiter: signer is required")
	}
	if rpc == nil {
		return nil, fmt.Errorf("jupiter: RPC client is required")
	}
	if slippageBps < 0 || slippageBps > 10_000 {
		return nil, fmt.Errorf("jupiter: slippage %d bps out of range", slippageBps)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		policy:      netx.DefaultPolicy(),
		registry:    registry,
		signer:      signer,
		rpc:         rpc,
		limiter:     limiter,
		slippageBps: slippageBps,
		logger:      logger.With(slog.String("component", "jupiter")),
	}, nil
}

// Name returns the venue identifier.
func (c *Client) Name() string { return venueName }

// GetQuote fetches a quote for swapping inAmount of inSymbol into outSymbol.
// A quoted route that does not exist, and any malformed response, yield
// (nil, nil): no quote, venue still reachable.
func (c *Client) GetQuote(ctx context.Context, inSymbol, outSymbol string, inAmount uint64) (*domain.Quote, error) {
	parsed, _, err := c.fetchQuote(ctx, inSymbol, outSymbol, inAmount)
	if err != nil || parsed == nil {
		return nil, err
	}

	return c.toQuote(inSymbol, outSymbol, parsed)
}

// ExecuteSwap runs one swap leg end to end: re-quote, build, sign, submit.
// Venue-side rejections come back as Success=false; an error means the leg
// never reached the venue.
func (c *Client) ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	parsed, raw, err := c.fetchQuote(ctx, req.InSymbol, req.OutSymbol, req.InAmount)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("jupiter: swap quote: %w", err)
	}
	if parsed == nil {
		return domain.SwapResult{Description: "no route available"}, nil
	}

	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("jupiter: parse quoted out amount %q: %w", parsed.OutAmount, err)
	}
	if outAmount < req.MinOutAmount {
		return domain.SwapResult{
			Description: fmt.Sprintf("quote moved below minimum out: %d < %d", outAmount, req.MinOutAmount),
		}, nil
	}

	swapReq := swapRequest{
		QuoteResponse:    raw,
		UserPublicKey:    c.signer.PublicKey(),
		WrapAndUnwrapSol: true,
	}

	if err := c.wait(ctx); err != nil {
		return domain.SwapResult{}, err
	}

	var swapResp swapResponse
	if err := netx.PostJSON(ctx, c.httpClient, c.policy, c.baseURL+"/swap", swapReq, &swapResp); err != nil {
		return domain.SwapResult{}, fmt.Errorf("jupiter: build swap transaction: %w", err)
	}
	if swapResp.SwapTransaction == "" {
		return domain.SwapResult{}, fmt.Errorf("jupiter: swap response missing transaction")
	}

	signedTx, _, err := c.signer.SignTransaction(swapResp.SwapTransaction)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("jupiter: %w: %v", domain.ErrSigningFailed, err)
	}

	signature, err := c.rpc.SendTransaction(ctx, signedTx)
	if err != nil {
		// The transaction was fully built and signed; a rejected submission
		// is a venue outcome, not an adapter fault.
		c.logger.Error("swap submission failed",
			slog.String("in", req.InSymbol),
			slog.String("out", req.OutSymbol),
			slog.String("error", err.Error()))
		return domain.SwapResult{Description: err.Error()}, nil
	}

	return domain.SwapResult{
		Success:     true,
		TxSignature: signature,
		Description: "submitted",
		OutAmount:   outAmount,
	}, nil
}

// fetchQuote requests a quote and returns both the parsed form and the raw
// bytes (the swap builder wants the quote back verbatim). A nil parsed quote
// with a nil error means no route.
func (c *Client) fetchQuote(ctx context.Context, inSymbol, outSymbol string, inAmount uint64) (*quoteResponse, json.RawMessage, error) {
	inToken, ok := c.registry.Lookup(inSymbol)
	if !ok {
		return nil, nil, nil
	}
	outToken, ok := c.registry.Lookup(outSymbol)
	if !ok {
		return nil, nil, nil
	}

	params := url.Values{}
	params.Set("inputMint", inToken.Mint)
	params.Set("outputMint", outToken.Mint)
	params.Set("amount", strconv.FormatUint(inAmount, 10))
	params.Set("slippageBps", strconv.Itoa(c.slippageBps))

	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}

	var raw json.RawMessage
	err := netx.GetJSON(ctx, c.httpClient, c.policy, c.baseURL+"/quote?"+params.Encode(), &raw)
	if err != nil {
		var status *netx.StatusError
		if errors.As(err, &status) && status.Code == http.StatusBadRequest {
			// No route for this pair and size.
			c.logger.Debug("no route",
				slog.String("in", inSymbol),
				slog.String("out", outSymbol))
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("jupiter: get quote: %w", err)
	}

	var parsed quoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Warn("malformed quote response",
			slog.String("in", inSymbol),
			slog.String("out", outSymbol),
			slog.String("error", err.Error()))
		return nil, nil, nil
	}
	return &parsed, raw, nil
}

// toQuote validates the API amounts and converts them to a domain quote.
func (c *Client) toQuote(inSymbol, outSymbol string, parsed *quoteResponse) (*domain.Quote, error) {
	inToken, _ := c.registry.Lookup(inSymbol)
	outToken, _ := c.registry.Lookup(outSymbol)

	inAmount, errIn := strconv.ParseUint(parsed.InAmount, 10, 64)
	outAmount, errOut := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if errIn != nil || errOut != nil || inAmount == 0 || outAmount == 0 {
		c.logger.Warn("unusable quote amounts",
			slog.String("in_amount", parsed.InAmount),
			slog.String("out_amount", parsed.OutAmount))
		return nil, nil
	}

	poolID := ""
	if len(parsed.RoutePlan) > 0 {
		poolID = parsed.RoutePlan[0].SwapInfo.AmmKey
	}

	return &domain.Quote{
		InSymbol:  inSymbol,
		OutSymbol: outSymbol,
		InAmount:  inAmount,
		OutAmount: outAmount,
		Price:     units.FromBaseUnits(outAmount, outToken.Decimals) / units.FromBaseUnits(inAmount, inToken.Decimals),
		Venue:     venueName,
		PoolID:    poolID,
	}, nil
}

// wait blocks on the shared rate limiter when one is configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, rateKey, rateLimit, rateWindow); err != nil {
		return fmt.Errorf("jupiter: rate limit wait: %w", err)
	}
	return nil
}
