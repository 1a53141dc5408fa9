// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// TunnelClient provides access to the tunnel supervisor's Control-plane
// surface: stopping the active tunnel (spec §4.13). Starting and
// monitoring the tunnel are daemon-internal (config-driven at startup);
// only Stop is exposed over the Control plane.
//
// Access this client through [Client.Tunnel]:
//
//	_, err := c.Tunnel.Stop(ctx)
type TunnelClient struct {
	c *Client
}

// Stop terminates the supervised tunnel process, if one is running
// (POST /api/tunnel/stop).
func (t *TunnelClient) Stop(ctx context.Context) (*Result, error) {
	data, err := t.c.post(ctx, "/api/tunnel/stop")
	if err != nil {
		return nil, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}
