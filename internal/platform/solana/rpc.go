// Package solana is a minimal JSON-RPC client for a Solana node. It covers
// only what the swap path needs: submitting signed transactions and the
// health check used by the connectivity gate.
package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fhuezo/solarb/internal/netx"
)

// Client talks to a single Solana RPC endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	policy     netx.RetryPolicy
}

// NewClient creates an RPC client for the given endpoint URL.
func NewClient(endpoint string) (*Client, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("solana: invalid RPC endpoint %q", endpoint)
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		policy: netx.DefaultPolicy(),
	}, nil
}

// SetRetryPolicy overrides the default retry policy.
func (c *Client) SetRetryPolicy(policy netx.RetryPolicy) { c.policy = policy }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// SendTransaction submits a signed, base64-encoded transaction and returns
// its signature. Preflight is skipped: the quote is seconds old and a
// preflight failure would only add latency before the same on-chain result.
func (c *Client) SendTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	params := []any{
		signedTxBase64,
		map[string]any{
			"encoding":      "base64",
			"skipPreflight": true,
			"maxRetries":    0,
		},
	}

	raw, err := c.call(ctx, "sendTransaction", params)
	if err != nil {
		return "", fmt.Errorf("solana: send transaction: %w", err)
	}

	var signature string
	if err := json.Unmarshal(raw, &signature); err != nil {
		return "", fmt.Errorf("solana: decode send result: %w", err)
	}
	if signature == "" {
		return "", fmt.Errorf("solana: send transaction: empty signature in response")
	}
	return signature, nil
}

// GetHealth returns nil when the node reports itself healthy.
func (c *Client) GetHealth(ctx context.Context) error {
	raw, err := c.call(ctx, "getHealth", nil)
	if err != nil {
		return fmt.Errorf("solana: get health: %w", err)
	}

	var status string
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("solana: decode health result: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("solana: node unhealthy: %s", status)
	}
	return nil
}

// call performs one JSON-RPC method call through the shared retry layer. An
// RPC-level error (a well-formed error object in a 200 response) is not
// retried; those are deterministic rejections such as a bad transaction.
func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}

	var resp rpcResponse
	if err := netx.PostJSON(ctx, c.httpClient, c.policy, c.endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("rpc response missing result")
	}
	return resp.Result, nil
}
