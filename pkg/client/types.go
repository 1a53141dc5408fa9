// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// Provider identifies which coding-agent CLI a session belongs to,
// mirroring internal/model.Provider.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderGemini Provider = "gemini"
)

// Session is a live agent conversation the daemon is tailing, mirroring
// internal/model.Session's wire shape.
type Session struct {
	SessionID      string    `json:"sessionId"`
	Provider       Provider  `json:"provider"`
	Cwd            string    `json:"cwd"`
	StartedAt      time.Time `json:"startedAt"`
	TranscriptPath string    `json:"transcriptPath"`
	Tty            string    `json:"tty,omitempty"`
}

// ConnectedSocket describes one live Data-transport connection, mirroring
// internal/model.ConnectedSocket.
type ConnectedSocket struct {
	SocketID    string     `json:"socketId"`
	DeviceID    string     `json:"deviceId,omitempty"`
	ConnectedAt time.Time  `json:"connectedAt"`
	LastAckAt   *time.Time `json:"lastAckAt,omitempty"`
}

// PairingStart is returned by [PairingClient.Start]: a freshly generated
// pairing code plus its display format and remaining lifetime.
type PairingStart struct {
	Code          string `json:"code"`
	FormattedCode string `json:"formattedCode"`
	ExpiresIn     int64  `json:"expiresIn"`
}

// PairingStatus is a snapshot of the in-progress (or idle) pairing
// exchange, returned by [PairingClient.Status]. Completed is a one-shot
// latch: it reads true exactly once after a successful pairing.
type PairingStatus struct {
	Active      bool   `json:"active"`
	Code        string `json:"code,omitempty"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	DeviceName  string `json:"deviceName,omitempty"`
}

// Result is the flat success/error acknowledgement the Control plane
// returns from mutating endpoints that have no richer response of their
// own (pairing cancel, tunnel stop), mirroring internal/model.ActionResult.
type Result struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
