// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// PairingClient provides access to the Control plane's side of the
// device-pairing handshake: starting a new pairing code, polling its
// progress, and cancelling it. The handshake itself runs over the Data
// transport (spec §4.5); this client only triggers and observes it.
//
// Access this client through [Client.Pairing]:
//
//	start, err := c.Pairing.Start(ctx)
type PairingClient struct {
	c *Client
}

// Start generates a fresh pairing code and displays it for the duration
// of its TTL (POST /api/pairing/start).
func (p *PairingClient) Start(ctx context.Context) (*PairingStart, error) {
	data, err := p.c.post(ctx, "/api/pairing/start")
	if err != nil {
		return nil, err
	}
	var start PairingStart
	if err := json.Unmarshal(data, &start); err != nil {
		return nil, fmt.Errorf("failed to parse pairing start: %w", err)
	}
	return &start, nil
}

// Status polls the current pairing exchange's progress
// (GET /api/pairing/status).
func (p *PairingClient) Status(ctx context.Context) (*PairingStatus, error) {
	data, err := p.c.get(ctx, "/api/pairing/status")
	if err != nil {
		return nil, err
	}
	var status PairingStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse pairing status: %w", err)
	}
	return &status, nil
}

// Cancel abandons the in-progress pairing exchange, if any
// (POST /api/pairing/cancel).
func (p *PairingClient) Cancel(ctx context.Context) (*Result, error) {
	data, err := p.c.post(ctx, "/api/pairing/cancel")
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}
