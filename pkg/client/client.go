// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for arc0d's Control plane.
//
// arc0d is a workstation-resident daemon that bridges interactive
// coding-agent CLIs to a paired mobile or web client. The Control plane is
// a small localhost-only HTTP API (spec §4.11) for status, client/session
// listing, pairing, and tunnel control; it never touches the encrypted
// Data transport.
//
// # Getting Started
//
// Create a client pointing to the daemon's Control port:
//
//	c := client.New("http://localhost:8787")
//
// The client exposes the Control plane's resources through sub-clients:
//
//	status, err := c.Status(ctx)
//	sessions, err := c.Sessions.List(ctx)
//	start, err := c.Pairing.Start(ctx)
//
// # Configuration Options
//
// The client can be configured with functional options:
//
//	c := client.New("http://localhost:8787",
//	    client.WithTimeout(10 * time.Second),
//	    client.WithHTTPClient(customHTTPClient),
//	)
//
// # Error Handling
//
// API errors are returned as *APIError values carrying the Control plane's
// flat {"error": message} body:
//
//	if _, err := c.Pairing.Start(ctx); err != nil {
//	    if apiErr, ok := err.(*client.APIError); ok {
//	        fmt.Println(apiErr.Message)
//	    }
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an arc0d Control-plane API client.
//
// A Client provides access to the Control plane through resource-specific
// sub-clients. Use [New] to create a Client instance. Client is safe for
// concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Sessions provides access to the active coding-agent session list.
	Sessions *SessionClient

	// Pairing provides access to the device-pairing handshake's
	// Control-plane side: starting, polling, and cancelling.
	Pairing *PairingClient

	// Tunnel provides access to the tunnel supervisor's stop control.
	Tunnel *TunnelClient
}

// Option configures a [Client]. Options are passed to [New].
type Option func(*Client)

// New creates a new arc0d Control-plane client with the given base URL.
//
// baseURL should be the daemon's Control listener, e.g.
// "http://localhost:8787". Any trailing slash is removed. By default, the
// client uses a 10-second HTTP timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Sessions = &SessionClient{c: c}
	c.Pairing = &PairingClient{c: c}
	c.Tunnel = &TunnelClient{c: c}

	return c
}

// WithHTTPClient sets a custom HTTP client for making requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// BaseURL returns the base URL of the Control plane.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError represents an error response from the Control plane.
//
// The Control plane's error body is a flat {"error": message} shape (spec
// §4.11), not a coded envelope, so APIError carries only a message plus
// the HTTP status that produced it.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("arc0d control API: %d: %s", e.StatusCode, e.Message)
}

// Status is the daemon's overall status (GET /api/status).
type Status struct {
	Running      bool   `json:"running"`
	Uptime       string `json:"uptime"`
	ClientCount  int    `json:"clientCount"`
	SessionCount int    `json:"sessionCount"`
}

// Status fetches the daemon's current status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	data, err := c.get(ctx, "/api/status")
	if err != nil {
		return nil, err
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &s, nil
}

// errorBody mirrors internal/control's flat error response shape.
type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		msg := eb.Error
		if msg == "" {
			msg = string(respBody)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return json.RawMessage(respBody), nil
}
