// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the Data transport (spec §4.7): a
// connection-oriented, event-with-ack websocket listener on port D. It
// wires the session registry, transcript watcher, pairing coordinator,
// client registry, action dispatcher, and per-socket outbound queue
// together into the wire protocol spec.md §6 describes.
package transport

import "encoding/json"

// Message is the envelope every frame on the data socket uses, inbound and
// outbound alike: an event name, an opaque payload, and an optional ack
// correlation id. Encrypted payloads carry a crypto.Envelope JSON value in
// Data instead of the plain event body (runtime-detected, spec §4.7).
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// Outbound and inbound event names (spec §4.7, §6).
const (
	eventPairInit      = "pair:init"
	eventPairConfirm   = "pair:confirm"
	eventPairChallenge = "pair:challenge"
	eventPairComplete  = "pair:complete"
	eventPairError     = "pair:error"

	eventInit          = "init"
	eventPing          = "ping"
	eventAck           = "ack"
	eventProtocolError = "protocol:error"

	eventSessions = "sessions"
	eventProjects = "projects"
	eventMessages = "messages"

	eventOpenSession    = "openSession"
	eventSendPrompt     = "sendPrompt"
	eventStopAgent      = "stopAgent"
	eventApproveToolUse = "approveToolUse"
)
