// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package model holds the domain types shared across arc0d's components:
// sessions, transcript lines, permission events, cursors, and the action
// contracts exchanged over the data transport.
package model

import (
	"encoding/json"
	"time"
)

// Provider identifies which coding-agent CLI a session belongs to.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderCodex  Provider = "codex"
	ProviderGemini Provider = "gemini"
)

// Session is a live agent conversation being tailed by the daemon.
type Session struct {
	SessionID      string    `json:"sessionId"`
	Provider       Provider  `json:"provider"`
	Cwd            string    `json:"cwd"`
	StartedAt      time.Time `json:"startedAt"`
	TranscriptPath string    `json:"transcriptPath"`
	Tty            string    `json:"tty,omitempty"`
}

// Interactive reports whether this session currently has a live terminal
// pane attached, computed on demand by the terminal-pane adapter.
type Interactive struct {
	SessionID   string `json:"sessionId"`
	Interactive bool   `json:"interactive"`
}

// TranscriptLine is one JSON object from a session transcript, opaque to
// the daemon except for its extracted top-level timestamp field.
type TranscriptLine struct {
	Raw       json.RawMessage `json:"raw"`
	Timestamp string          `json:"timestamp"`
}

// PermissionEvent is a sideband, one-shot user-approval request emitted by
// a provider hook.
type PermissionEvent struct {
	SessionID string          `json:"sessionId"`
	ToolUseID string          `json:"toolUseId"`
	ToolName  string          `json:"toolName"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Cursor is a client-supplied per-session resume point: "send me lines with
// timestamp strictly greater than LastMessageTs."
type Cursor struct {
	SessionID     string `json:"sessionId"`
	LastMessageTs string `json:"lastMessageTs"`
	LastMessageID string `json:"lastMessageId,omitempty"`
}

// TimelineItem is one element of a TimelineBatch: either a raw transcript
// line or a permission-request event, both carrying a timestamp for merge
// ordering.
type TimelineItem struct {
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"-"`
	// IsPermission distinguishes a permission-request payload from a raw
	// transcript line when timestamps tie; transcripts sort first.
	IsPermission bool `json:"-"`
}

// TimelineBatch is the envelope sent on the "messages" channel, subject to
// per-client single-in-flight delivery.
type TimelineBatch struct {
	WorkstationID string         `json:"workstationId"`
	Items         []TimelineItem `json:"items"`
	BatchID       string         `json:"batchId"`
}

// ConnectedSocket describes one live data-transport connection, as
// reported by GET /api/clients (spec §4.11).
type ConnectedSocket struct {
	SocketID    string     `json:"socketId"`
	DeviceID    string     `json:"deviceId,omitempty"`
	ConnectedAt time.Time  `json:"connectedAt"`
	LastAckAt   *time.Time `json:"lastAckAt,omitempty"`
}

// Client is a paired device: one entry in the Client registry.
type Client struct {
	DeviceID      string     `json:"deviceId"`
	DeviceName    string     `json:"deviceName"`
	AuthTokenHash string     `json:"authTokenHash"`
	EncryptionKey string     `json:"encryptionKey"` // base64
	CreatedAt     time.Time  `json:"createdAt"`
	LastSeen      *time.Time `json:"lastSeen,omitempty"`
}

// ActionResult is the ack payload returned for every authenticated action.
type ActionResult struct {
	Status  string `json:"status"` // "success" or "error"
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success and common error ActionResults.
func Success() ActionResult { return ActionResult{Status: "success"} }

func Error(code, message string) ActionResult {
	return ActionResult{Status: "error", Code: code, Message: message}
}

// Known ActionResult error codes.
const (
	CodeInvalidPayload     = "INVALID_PAYLOAD"
	CodeInvalidCwd         = "INVALID_CWD"
	CodeTmuxNotInstalled   = "TMUX_NOT_INSTALLED"
	CodeProviderNotFound   = "PROVIDER_NOT_FOUND"
	CodeSessionCreateFail  = "SESSION_CREATE_FAILED"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodePaneNotFound       = "PANE_NOT_FOUND"
	CodeDecryptError       = "DECRYPT_ERROR"
	CodeProtocolMismatch   = "PROTOCOL_MISMATCH"

	// Pairing coordinator error codes (spec §4.5).
	CodeInvalidPairingCode = "INVALID_CODE"
	CodeInvalidFormat      = "INVALID_FORMAT"
	CodeTimeout            = "TIMEOUT"
	CodeMACMismatch        = "MAC_MISMATCH"
	CodeAlreadyPaired      = "ALREADY_PAIRED"
	CodePairingDisabled    = "PAIRING_DISABLED"
)

// ProtocolVersion is the wire protocol version advertised by this daemon.
const ProtocolVersion = "1.0"

// InitPayload is the body of the client's "init" event: cursor-based resume
// sync plus protocol negotiation (spec §4.9, §6).
type InitPayload struct {
	DeviceID        string   `json:"deviceId"`
	ProtocolVersion string   `json:"protocolVersion"`
	Cursor          []Cursor `json:"cursor"`
}

// ProtocolError is the body of an outbound "protocol:error" event.
type ProtocolError struct {
	Code     string `json:"code"`
	Expected string `json:"expected"`
	Received string `json:"received"`
}

// ProjectSummary is one entry of the outbound "projects" snapshot: one
// watched root per enabled provider, by convention (SPEC_FULL §4.15).
type ProjectSummary struct {
	Provider Provider `json:"provider"`
	Root     string   `json:"root"`
}

// PairInit is the body of the client's "pair:init" event.
type PairInit struct {
	DeviceID      string `json:"deviceId"`
	DeviceName    string `json:"deviceName"`
	Spake2Message string `json:"spake2Message"` // base64
}

// PairChallenge is the body of the outbound "pair:challenge" event, the
// server's SPAKE2 response to pair:init.
type PairChallenge struct {
	Spake2Message string `json:"spake2Message"` // base64
}

// PairConfirm is the body of the client's "pair:confirm" event.
type PairConfirm struct {
	MAC string `json:"mac"` // base64
}

// PairComplete is the body of the outbound "pair:complete" event. AuthToken
// and EncryptionKey are sent once, in the clear, over the pairing channel
// itself (spec §4.5).
type PairComplete struct {
	MAC             string `json:"mac"` // base64
	WorkstationID   string `json:"workstationId"`
	WorkstationName string `json:"workstationName"`
	DeviceID        string `json:"deviceId"`
	AuthToken       string `json:"authToken"`     // base64
	EncryptionKey   string `json:"encryptionKey"` // base64
}

// PairError is the body of the outbound "pair:error" event.
type PairError struct {
	Code string `json:"code"`
}
