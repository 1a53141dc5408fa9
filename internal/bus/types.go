// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package bus is arc0d's in-process pub/sub: a synchronous, non-durable
// broadcast relay between the transcript watcher, session registry,
// pairing coordinator, and the data transport's fan-out step.
package bus

import (
	"context"
	"time"

	"github.com/shaneholloman/arc0d/internal/model"
)

// Kind identifies an event's payload shape.
type Kind string

const (
	KindSessionStart      Kind = "session:start"
	KindSessionEnd        Kind = "session:end"
	KindSessionsChange    Kind = "sessions:change"
	KindMessagesNew       Kind = "messages:new"
	KindPermissionRequest Kind = "permission:request"
)

// Event is an immutable event record. Payload's concrete type is
// determined by Kind; see the KindXxxPayload types below.
type Event struct {
	ID        string
	Kind      Kind
	Timestamp time.Time
	Payload   any
}

// SessionStartPayload accompanies KindSessionStart.
type SessionStartPayload struct {
	Session model.Session
}

// SessionEndPayload accompanies KindSessionEnd.
type SessionEndPayload struct {
	SessionID string
}

// SessionsChangePayload accompanies KindSessionsChange.
type SessionsChangePayload struct {
	Sessions []model.Session
}

// MessagesNewPayload accompanies KindMessagesNew.
type MessagesNewPayload struct {
	SessionID string
	Lines     []model.TranscriptLine
}

// PermissionRequestPayload accompanies KindPermissionRequest.
type PermissionRequestPayload struct {
	SessionID string
	Event     model.PermissionEvent
}

// Handler processes a received event. Handlers must not block; emit is
// synchronous on the emitter's goroutine (see Bus.Publish).
type Handler func(ctx context.Context, event Event)

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// Bus is the core event pub/sub contract.
type Bus interface {
	// Publish emits an event to all matching subscribers, synchronously.
	Publish(ctx context.Context, kind Kind, payload any)

	// On registers a synchronous handler for an exact Kind.
	On(kind Kind, handler Handler) SubscriptionID

	// OnAsync registers an async handler with a buffered channel, for
	// handlers that may perform I/O.
	OnAsync(kind Kind, handler Handler, bufferSize int) SubscriptionID

	// Off removes a subscription.
	Off(id SubscriptionID)

	// Close shuts the bus down gracefully, stopping all async handlers.
	Close() error
}
