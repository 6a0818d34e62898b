// Package raydium is the venue adapter for the Raydium trade API.
package raydium

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

const venueName = "raydium"

const (
	rateKey    = "raydium:api"
	rateLimit  = 40
	rateWindow = time.Minute

	txVersion = "V0"

	// Flat priority fee; the auto-fee endpoint is not worth a round trip
	// per leg at this trade size.
	computeUnitPrice = "1000"
)

// Client implements domain.VenueClient against the Raydium trade API.
// Raydium computes the route, builds the transaction, and hands it back
// unsigned; signing and submission happen locally.
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

// NewClient creates a Raydium adapter.
//
// baseURL is the trade API root, e.g. "https://transaction-v1.raydium.io".
// limiter may be nil, in which case requests are not throttled locally.
func NewClient(baseURL string, registry domain.TokenRegistry, signer *crypto.Signer, rpc *solana.Client, limiter domain.RateLimiter, slippageBps int, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("raydium: base URL is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("raydium: token registry is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("raydium: signer is required")
	}
	if rpc == nil {
		return nil, fmt.Errorf("raydium: RPC client is required")
	}
	if slippageBps < 0 || slippageBps > 10_000 {
		return nil, fmt.Errorf("raydium: slippage %d bps out of range", slippageBps)
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
		logger:      logger.With(slog.String("component", "raydium")),
	}, nil
}

// Name returns the venue identifier.
func (c *Client) Name() string { return venueName }

// GetQuote computes a swap quote for inAmount of inSymbol into outSymbol.
// Unroutable pairs and malformed responses yield (nil, nil).
func (c *Client) GetQuote(ctx context.Context, inSymbol, outSymbol string, inAmount uint64) (*domain.Quote, error) {
	data, _, err := c.compute(ctx, inSymbol, outSymbol, inAmount)
	if err != nil || data == nil {
		return nil, err
	}

	inToken, _ := c.registry.Lookup(inSymbol)
	outToken, _ := c.registry.Lookup(outSymbol)

	in, errIn := strconv.ParseUint(data.InputAmount, 10, 64)
	out, errOut := strconv.ParseUint(data.OutputAmount, 10, 64)
	if errIn != nil || errOut != nil || in == 0 || out == 0 {
		c.logger.Warn("unusable compute amounts",
			slog.String("in_amount", data.InputAmount),
			slog.String("out_amount", data.OutputAmount))
		return nil, nil
	}

	poolID := ""
	if len(data.RoutePlan) > 0 {
		poolID = data.RoutePlan[0].PoolID
	}

	return &domain.Quote{
		InSymbol:  inSymbol,
		OutSymbol: outSymbol,
		InAmount:  in,
		OutAmount: out,
		Price:     units.FromBaseUnits(out, outToken.Decimals) / units.FromBaseUnits(in, inToken.Decimals),
		Venue:     venueName,
		PoolID:    poolID,
	}, nil
}

// ExecuteSwap runs one swap leg: re-compute, fetch the unsigned transaction,
// sign, submit. Venue-side rejections come back as Success=false.
func (c *Client) ExecuteSwap(ctx context.Context, req domain.SwapRequest) (domain.SwapResult, error) {
	data, envelope, err := c.compute(ctx, req.InSymbol, req.OutSymbol, req.InAmount)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("raydium: swap compute: %w", err)
	}
	if data == nil {
		return domain.SwapResult{Description: "no route available"}, nil
	}

	outAmount, err := strconv.ParseUint(data.OutputAmount, 10, 64)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("raydium: parse computed out amount %q: %w", data.OutputAmount, err)
	}
	if outAmount < req.MinOutAmount {
		return domain.SwapResult{
			Description: fmt.Sprintf("quote moved below minimum out: %d < %d", outAmount, req.MinOutAmount),
		}, nil
	}

	txReq := transactionRequest{
		ComputeUnitPriceMicroLamports: computeUnitPrice,
		SwapResponse:                  envelope,
		TxVersion:                     txVersion,
		Wallet:                        c.signer.PublicKey(),
		WrapSol:                       req.InSymbol == "SOL",
		UnwrapSol:                     req.OutSymbol == "SOL",
	}

	if err := c.wait(ctx); err != nil {
		return domain.SwapResult{}, err
	}

	var txResp transactionResponse
	if err := netx.PostJSON(ctx, c.httpClient, c.policy, c.baseURL+"/transaction/swap-base-in", txReq, &txResp); err != nil {
		return domain.SwapResult{}, fmt.Errorf("raydium: build swap transaction: %w", err)
	}
	if !txResp.Success || len(txResp.Data) == 0 || txResp.Data[0].Transaction == "" {
		return domain.SwapResult{}, fmt.Errorf("raydium: transaction build rejected: %s", txResp.Msg)
	}

	signedTx, _, err := c.signer.SignTransaction(txResp.Data[0].Transaction)
	if err != nil {
		return domain.SwapResult{}, fmt.Errorf("raydium: %w: %v", domain.ErrSigningFailed, err)
	}

	signature, err := c.rpc.SendTransaction(ctx, signedTx)
	if err != nil {
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

// compute calls GET /compute/swap-base-in and returns the parsed payload
// plus the raw envelope (the transaction builder wants it back verbatim).
// A nil payload with a nil error means no route.
func (c *Client) compute(ctx context.Context, inSymbol, outSymbol string, inAmount uint64) (*computeData, json.RawMessage, error) {
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
	params.Set("txVersion", txVersion)

	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}

	var raw json.RawMessage
	err := netx.GetJSON(ctx, c.httpClient, c.policy, c.baseURL+"/compute/swap-base-in?"+params.Encode(), &raw)
	if err != nil {
		var status *netx.StatusError
		if errors.As(err, &status) && status.Code == http.StatusBadRequest {
			c.logger.Debug("no route",
				slog.String("in", inSymbol),
				slog.String("out", outSymbol))
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("raydium: compute quote: %w", err)
	}

	var envelope computeResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.logger.Warn("malformed compute response", slog.String("error", err.Error()))
		return nil, nil, nil
	}
	if !envelope.Success {
		c.logger.Debug("compute rejected",
			slog.String("in", inSymbol),
			slog.String("out", outSymbol),
			slog.String("msg", envelope.Msg))
		return nil, nil, nil
	}

	var data computeData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		c.logger.Warn("malformed compute payload", slog.String("error", err.Error()))
		return nil, nil, nil
	}
	return &data, raw, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, rateKey, rateLimit, rateWindow); err != nil {
		return fmt.Errorf("raydium: rate limit wait: %w", err)
	}
	return nil
}
