// Package settlement is the HTTP client for the external settlement layer.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"trustplane/internal/anchor/models"
	"trustplane/internal/anchor/ports"
	"trustplane/pkg/platform/circuit"
	"trustplane/pkg/platform/sentinel"
)

// ErrCircuitOpen is returned by Publish while the settlement circuit is open.
var ErrCircuitOpen = fmt.Errorf("settlement circuit open")

// Client publishes anchors to a settlement service over HTTP. A circuit
// breaker sheds publish traffic after repeated settlement failures; Confirm
// keeps probing the primary, so read traffic closes the circuit again once
// the settlement layer recovers.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("settlement base url is required")
	}

	cl := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New("settlement"),
	}

	for _, opt := range opts {
		opt(cl)
	}

	return cl, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
		c.logger.WarnContext(ctx, "settlement circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "settlement circuit closed", "breaker", c.breaker.Name())
	}
}

// publishResponse is the settlement layer's acknowledgement.
type publishResponse struct {
	Ref string `json:"ref"`
}

// Publish submits the anchor payload. The settlement layer deduplicates on
// content, so resubmitting the identical payload is safe.
func (c *Client) Publish(ctx context.Context, payload models.AnchorPayload) (string, error) {
	if c.breaker.IsOpen() {
		return "", ErrCircuitOpen
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode anchor payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/anchors", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return "", fmt.Errorf("publish anchor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.recordFailure(ctx)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("publish anchor: settlement returned %d: %s", resp.StatusCode, snippet)
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.recordFailure(ctx)
		return "", fmt.Errorf("decode publish response: %w", err)
	}
	if out.Ref == "" {
		c.recordFailure(ctx)
		return "", fmt.Errorf("publish anchor: settlement returned no reference")
	}
	c.recordSuccess(ctx)
	return out.Ref, nil
}

// Confirm fetches the settled anchor for a domain and epoch.
func (c *Client) Confirm(ctx context.Context, domain string, epoch uint64) (*ports.SettlementReceipt, error) {
	u := fmt.Sprintf("%s/anchors/%s/%d", c.baseURL, url.PathEscape(domain), epoch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build confirm request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return nil, fmt.Errorf("confirm anchor: %w", err)
	}
	defer resp.Body.Close()

	// A 404 is an answer from a healthy settlement layer, not an outage.
	if resp.StatusCode == http.StatusNotFound {
		c.recordSuccess(ctx)
		return nil, sentinel.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.recordFailure(ctx)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("confirm anchor: settlement returned %d: %s", resp.StatusCode, snippet)
	}

	var receipt ports.SettlementReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		c.recordFailure(ctx)
		return nil, fmt.Errorf("decode confirm response: %w", err)
	}
	c.recordSuccess(ctx)
	return &receipt, nil
}
