// Package client is a small HTTP client for a replica's client_api
// endpoint — the Go-side counterpart of original_source/client.py's
// REQ-socket request/response loop, generalized from ZeroMQ REQ/REP to the
// teacher's net/http + context style.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"consistentkv/internal/transport"
)

// Client sends client wire protocol requests to one replica.
type Client struct {
	addr string // replica's client_api address, "host:port"
	http *http.Client
}

// New returns a Client targeting addr with the given per-request timeout.
func New(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, http: &http.Client{Timeout: timeout}}
}

// Do sends req and returns the reply string verbatim — "success" for a
// set, "key:value" for a get.
func (c *Client) Do(ctx context.Context, req transport.ClientRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("http://%s/request", c.addr)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request to %s: %w", c.addr, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response from %s: %w", c.addr, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request to %s: status %d: %s", c.addr, resp.StatusCode, out)
	}
	return string(out), nil
}

// Set issues a set request.
func (c *Client) Set(ctx context.Context, key string, value int64) (string, error) {
	return c.Do(ctx, transport.ClientRequest{Type: "set", Key: key, Value: value})
}

// Get issues a get request.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Do(ctx, transport.ClientRequest{Type: "get", Key: key})
}
