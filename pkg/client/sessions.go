// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// SessionClient provides access to the daemon's active session list.
//
// Access this client through [Client.Sessions]:
//
//	sessions, err := c.Sessions.List(ctx)
type SessionClient struct {
	c *Client
}

// List returns every currently active coding-agent session across all
// enabled providers (GET /api/sessions).
func (s *SessionClient) List(ctx context.Context) ([]Session, error) {
	data, err := s.c.get(ctx, "/api/sessions")
	if err != nil {
		return nil, err
	}
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return sessions, nil
}

// Clients returns every currently connected Data-transport socket,
// authenticated or not (GET /api/clients).
func (c *Client) Clients(ctx context.Context) ([]ConnectedSocket, error) {
	data, err := c.get(ctx, "/api/clients")
	if err != nil {
		return nil, err
	}
	var out []ConnectedSocket
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse clients: %w", err)
	}
	return out, nil
}
