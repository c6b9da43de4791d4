package lp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate checks wire structs once decoded. A response that fails
// validation is treated as a transport error, never as data.
var validate = validator.New()

// Client talks to one LP over its HTTP API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a client for the LP at endpoint. The timeout bounds every
// request end to end.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the LP base URL this client targets.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Info fetches the LP identity document.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.get(ctx, "/api/lp/info", &info); err != nil {
		return nil, err
	}
	info.Endpoint = c.endpoint
	return &info, nil
}

// Quote requests a full-route quote for a pair and amount.
func (c *Client) Quote(ctx context.Context, from, to string, amount float64) (*Quote, error) {
	path := fmt.Sprintf("/api/quote?from=%s&to=%s&amount=%g", from, to, amount)
	var q Quote
	if err := c.get(ctx, path, &q); err != nil {
		return nil, err
	}
	q.Endpoint = c.endpoint
	return &q, nil
}

// LegQuote requests a quote for a single leg of a per-leg route.
func (c *Client) LegQuote(ctx context.Context, from, to string, amount float64) (*Quote, error) {
	path := fmt.Sprintf("/api/quote/leg?from=%s&to=%s&amount=%g", from, to, amount)
	var q Quote
	if err := c.get(ctx, path, &q); err != nil {
		return nil, err
	}
	q.Endpoint = c.endpoint
	return &q, nil
}

// InitSwap opens a full-route swap plan.
func (c *Client) InitSwap(ctx context.Context, req *InitRequest) (*InitResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid init request: %w", err)
	}
	var resp InitResponse
	if err := c.post(ctx, "/api/flowswap/init", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitLeg opens one leg of a per-leg swap plan.
func (c *Client) InitLeg(ctx context.Context, req *InitLegRequest) (*InitLegResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid init-leg request: %w", err)
	}
	var resp InitLegResponse
	if err := c.post(ctx, "/api/flowswap/init-leg", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status fetches the LP's current view of a swap.
func (c *Client) Status(ctx context.Context, swapID string) (*SwapStatus, error) {
	var status SwapStatus
	if err := c.get(ctx, "/api/flowswap/"+swapID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// NotifyDeposit tells the LP the user has sent the base-chain deposit,
// prompting an immediate funding check instead of waiting for the LP's
// own watcher.
func (c *Client) NotifyDeposit(ctx context.Context, swapID string) (*DepositAck, error) {
	var ack DepositAck
	if err := c.post(ctx, "/api/flowswap/"+swapID+"/btc-funded", nil, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// NotifyEscrowFunded tells the LP the user's EVM escrow is on chain
// (reverse direction).
func (c *Client) NotifyEscrowFunded(ctx context.Context, swapID, htlcID string) error {
	req := escrowFundedRequest{HTLCID: htlcID}
	return c.post(ctx, "/api/flowswap/"+swapID+"/usdc-funded", &req, nil)
}

// Presign discloses the user secret to the LP. This is the commit point
// of the swap; callers gate it behind lock verification.
func (c *Client) Presign(ctx context.Context, swapID, sUser string) (*PresignResponse, error) {
	req := presignRequest{SUser: sUser}
	var resp PresignResponse
	if err := c.post(ctx, "/api/flowswap/"+swapID+"/presign", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NotifyRailLocked tells the output LP that the input LP's rail lock is
// on chain. The output LP responds by locking its own side and revealing
// its secret.
func (c *Client) NotifyRailLocked(ctx context.Context, swapID, railOutpoint, hLP1 string) (*RailLockAck, error) {
	req := railLockedRequest{RailOutpoint: railOutpoint, HLP1: hLP1}
	var ack RailLockAck
	if err := c.post(ctx, "/api/flowswap/"+swapID+"/m1-locked", &req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// DeliverSecret hands the output LP's revealed secret to the input LP.
func (c *Client) DeliverSecret(ctx context.Context, swapID, sLP2 string) error {
	req := deliverSecretRequest{SLP2: sLP2}
	return c.post(ctx, "/api/flowswap/"+swapID+"/deliver-secret", &req, nil)
}

// NotifyPrimaryClaimed relays the input-leg claim proof and revealed
// secrets to the output LP so it can complete delivery.
func (c *Client) NotifyPrimaryClaimed(ctx context.Context, swapID, claimTxID, sUser, sLP1 string) error {
	req := claimForwardRequest{BaseClaimTx: claimTxID, SUser: sUser, SLP1: sLP1}
	return c.post(ctx, "/api/flowswap/"+swapID+"/btc-claimed", &req, nil)
}

// RecentSwaps fetches the LP's public recent-swap list.
func (c *Client) RecentSwaps(ctx context.Context, limit int) ([]SwapSummary, error) {
	var result struct {
		Swaps []SwapSummary `json:"swaps"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/swaps?limit=%d", limit), &result); err != nil {
		return nil, err
	}
	return result.Swaps, nil
}

// get performs a GET request and decodes the JSON response into result.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body, decoding the response
// into result when result is non-nil. Every POST carries a fresh
// idempotency key so an LP that saw a timed-out first attempt can
// deduplicate the retry.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	return c.do(req, result)
}

// do executes the request and maps the response onto the error taxonomy.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return ErrSwapNotFound
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, readDetail(resp.Body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return parseRejection(resp.StatusCode, readDetail(resp.Body))
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	if err := validate.Struct(result); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrTransport, err)
	}
	return nil
}

// readDetail extracts the LP's error explanation from a JSON error body,
// falling back to the raw body when it is not JSON.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no detail"
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(data))
}
