// Package client is a Go client for the settlement engine's HTTP API.
//
// A Client owns one Ed25519 signing key and signs every mutating request
// with it, so the engine attributes commitments, reveals and withdrawals to
// the key's public half. Read endpoints need no key. The Trade method runs
// the full commit-reveal choreography for one hidden order.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairbatch/fairbatch/accumulator"
	"github.com/fairbatch/fairbatch/crypto"
	"github.com/fairbatch/fairbatch/engine"
	"github.com/fairbatch/fairbatch/protocol"
)

// Client talks to one settlement engine instance.
type Client struct {
	baseURL string
	key     crypto.PrivateKey
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// New creates a client for the engine at baseURL, signing with key. The key
// may be nil for read-only use.
func New(baseURL string, key crypto.PrivateKey, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		key:     key,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PublicKey returns the public half of the client's signing key.
func (c *Client) PublicKey() (crypto.PublicKey, error) {
	if c.key == nil {
		return nil, fmt.Errorf("client has no signing key")
	}
	return c.key.PublicKey()
}

// APIError is a non-OK response from the engine.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// Commit posts a bonded commitment and returns the engine's record of it.
// The returned commitment ID is needed to reveal.
func (c *Client) Commit(ctx context.Context, req *protocol.CommitRequest) (*protocol.Commitment, error) {
	return postSigned[protocol.CommitRequest, protocol.Commitment](ctx, c, "/api/commit", req)
}

// Reveal opens a commitment during its batch's reveal window.
func (c *Client) Reveal(ctx context.Context, req *protocol.RevealRequest) (*protocol.Order, error) {
	return postSigned[protocol.RevealRequest, protocol.Order](ctx, c, "/api/reveal", req)
}

// WithdrawBond reclaims whatever portion of a commitment's bond is owed.
func (c *Client) WithdrawBond(ctx context.Context, commitmentID uuid.UUID) (decimal.Decimal, error) {
	resp, err := postSigned[protocol.WithdrawBondRequest, map[string]string](
		ctx, c, "/api/withdraw-bond", &protocol.WithdrawBondRequest{CommitmentID: commitmentID})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString((*resp)["returned"])
}

// Settle triggers settlement of a batch whose reveal window has closed.
// Settlement is permissionless, so no signature is needed.
func (c *Client) Settle(ctx context.Context, batch protocol.BatchID) (*protocol.ClearingOutcome, error) {
	return post[protocol.ClearingOutcome](ctx, c, fmt.Sprintf("/api/settle/%d", batch), nil)
}

// Phase reports the batch currently in its commit or reveal window.
func (c *Client) Phase(ctx context.Context) (*engine.PhaseInfo, error) {
	return get[engine.PhaseInfo](ctx, c, "/api/phase")
}

// BatchRecord fetches the audit record of a batch.
func (c *Client) BatchRecord(ctx context.Context, batch protocol.BatchID) (*protocol.BatchRecord, error) {
	return get[protocol.BatchRecord](ctx, c, fmt.Sprintf("/api/batch/%d", batch))
}

// Proof fetches an inclusion proof for a commitment in a settled batch.
func (c *Client) Proof(ctx context.Context, batch protocol.BatchID, commitment uuid.UUID) (*accumulator.HistoryProof, error) {
	return get[accumulator.HistoryProof](ctx, c, fmt.Sprintf("/api/proof/%d/%s", batch, commitment))
}

// Root fetches the current root of the batch history accumulator.
func (c *Client) Root(ctx context.Context) (crypto.Hash, error) {
	body, err := get[map[string]string](ctx, c, "/api/root")
	if err != nil {
		return crypto.Hash{}, err
	}
	return crypto.NewHashFromString((*body)["root"])
}

func postSigned[Req any, Resp any](ctx context.Context, c *Client, path string, req *Req) (*Resp, error) {
	if c.key == nil {
		return nil, fmt.Errorf("client has no signing key")
	}
	signed, err := protocol.NewSigned(c.key, req)
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}
	payload, err := protocol.SerializeMessage(signed)
	if err != nil {
		return nil, err
	}
	return post[Resp](ctx, c, path, payload)
}

func post[Resp any](ctx context.Context, c *Client, path string, payload []byte) (*Resp, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return do[Resp](c, httpReq)
}

func get[Resp any](ctx context.Context, c *Client, path string) (*Resp, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return do[Resp](c, httpReq)
}

func do[Resp any](c *Client, req *http.Request) (*Resp, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var out Resp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}
