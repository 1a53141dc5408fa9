// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package pairing implements the pairing coordinator: the state machine
// that drives a single SPAKE2 exchange from a freshly displayed code
// through to a newly paired client-registry entry.
package pairing

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/crypto"
	"github.com/shaneholloman/arc0d/internal/model"
)

// State is one node of the pairing state machine.
type State string

const (
	StateIdle         State = "Idle"
	StateAdvertising  State = "Advertising"
	StateAwaitingInit State = "AwaitingInit"
	StateChallenged   State = "Challenged"
	StateConfirming   State = "Confirming"
	StateCompleted    State = "Completed"
	StateError        State = "Error"
)

// DefaultTTL is the default pairing-code lifetime.
const DefaultTTL = 120 * time.Second

// Error is a pairing-protocol error, carrying one of the model.Code*
// pairing error codes for the wire-level pair:error payload.
type Error struct {
	Code string
}

func (e *Error) Error() string { return e.Code }

// StartResult is returned by Start for display to the pairing human.
type StartResult struct {
	Code          string
	FormattedCode string
	ExpiresAt     time.Time
}

// CompleteResult is returned by HandlePairConfirm on success. AuthToken and
// EncryptionKey are sent once, in the clear, over the pairing channel
// itself — the handshake's security rests on SPAKE2, not on transport
// encryption (spec §4.5).
type CompleteResult struct {
	ServerMAC       []byte
	WorkstationID   string
	WorkstationName string
	DeviceID        string
	AuthToken       []byte
	EncryptionKey   []byte
}

// Status is a snapshot for Control-plane polling (GET /api/pairing/status,
// spec §4.11). Completed is a one-shot latch: it reads true exactly once
// after a successful pairing, then clears.
type Status struct {
	Active      bool   `json:"active"`
	Code        string `json:"code,omitempty"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	DeviceName  string `json:"deviceName,omitempty"`
}

// ErrorNotifier is invoked when a timeout or cancellation needs to reach an
// in-flight confirming socket. The coordinator itself holds no socket
// reference — that belongs to the data transport — so the transport layer
// registers this hook to learn when to push a pair:error to whichever
// socket is mid-confirm.
type ErrorNotifier func(code string)

// Coordinator owns the single active pairing session (spec §4.5).
type Coordinator struct {
	registry        *clients.Registry
	workstationID   string
	workstationName string
	ttl             time.Duration

	mu         sync.Mutex
	enabled    bool
	state      State
	generation uint64
	code       string
	expiresAt  time.Time
	timer      *time.Timer

	server            *crypto.Spake2
	sharedKey         crypto.SharedKey
	pendingDeviceID   string
	pendingDeviceName string

	completedPending    bool
	completedDeviceID   string
	completedDeviceName string

	notifyMu sync.Mutex
	notify   ErrorNotifier
}

// New creates a Coordinator bound to the given client registry. ttl <= 0
// uses DefaultTTL.
func New(registry *clients.Registry, workstationID, workstationName string, ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coordinator{
		registry:        registry,
		workstationID:   workstationID,
		workstationName: workstationName,
		ttl:             ttl,
		enabled:         true,
		state:           StateIdle,
	}
}

// SetEnabled toggles whether Start may begin a new pairing attempt.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// OnError registers the callback used to notify an in-flight socket of a
// timeout, cancellation, or MAC mismatch.
func (c *Coordinator) OnError(fn ErrorNotifier) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.notify = fn
}

func (c *Coordinator) emit(code string) {
	c.notifyMu.Lock()
	fn := c.notify
	c.notifyMu.Unlock()
	if fn != nil {
		fn(code)
	}
}

// Status returns a snapshot of the current pairing attempt, if any, for
// GET /api/pairing/status. Completed latches true on the first call after
// a successful pairing, then clears.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{Active: c.state != StateIdle}
	if s.Active {
		s.Code = crypto.FormatPairingCode(c.code)
		if remaining := time.Until(c.expiresAt); remaining > 0 {
			s.RemainingMs = remaining.Milliseconds()
		}
	}
	if c.completedPending {
		s.Completed = true
		s.DeviceID = c.completedDeviceID
		s.DeviceName = c.completedDeviceName
		c.completedPending = false
		c.completedDeviceID = ""
		c.completedDeviceName = ""
	}
	return s
}

// CurrentState exposes the raw state machine value, independent of the
// one-shot Completed latch in Status — used internally (e.g. by
// HandlePairInit's "already advertising" checks) and by tests.
func (c *Coordinator) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start generates a fresh pairing code, rejecting concurrent attempts is
// not necessary here: starting again simply supersedes whatever attempt
// was previously advertised, matching "one pairing session at a time."
func (c *Coordinator) Start() (StartResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return StartResult{}, &Error{Code: model.CodePairingDisabled}
	}

	code, err := crypto.GeneratePairingCode()
	if err != nil {
		return StartResult{}, fmt.Errorf("pairing: generate code: %w", err)
	}

	c.generation++
	gen := c.generation
	c.code = code
	c.expiresAt = time.Now().Add(c.ttl)
	c.state = StateAdvertising
	c.server = nil
	c.sharedKey = crypto.SharedKey{}
	c.pendingDeviceID = ""
	c.pendingDeviceName = ""

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.ttl, func() { c.onTimeout(gen) })

	return StartResult{Code: code, FormattedCode: crypto.FormatPairingCode(code), ExpiresAt: c.expiresAt}, nil
}

func (c *Coordinator) onTimeout(gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.mu.Unlock()

	c.emit(model.CodeTimeout)
}

// HandlePairInit computes the server's SPAKE2 response and transitions to
// Challenged. Accepted in Advertising or AwaitingInit.
func (c *Coordinator) HandlePairInit(deviceID, deviceName string, spake2Message []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAdvertising && c.state != StateAwaitingInit {
		return nil, &Error{Code: model.CodeAlreadyPaired}
	}
	if _, alreadyPaired := c.registry.Get(deviceID); alreadyPaired {
		return nil, &Error{Code: model.CodeAlreadyPaired}
	}

	server, err := crypto.NewServer(c.code)
	if err != nil {
		return nil, &Error{Code: model.CodeInvalidFormat}
	}
	key, err := server.Finish(spake2Message)
	if err != nil {
		return nil, &Error{Code: model.CodeInvalidFormat}
	}

	c.server = server
	c.sharedKey = key
	c.pendingDeviceID = deviceID
	c.pendingDeviceName = deviceName
	c.state = StateChallenged

	return server.Message(), nil
}

// HandlePairConfirm verifies the client's confirmation MAC. On mismatch the
// code remains valid and the coordinator reverts to Advertising so the
// human can retry. On success a new client is inserted into the registry
// and the coordinator returns to Idle.
func (c *Coordinator) HandlePairConfirm(mac []byte) (*CompleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateChallenged {
		return nil, &Error{Code: model.CodeTimeout}
	}
	c.state = StateConfirming

	if !c.sharedKey.VerifyClientConfirm(mac) {
		c.state = StateAdvertising
		c.server = nil
		c.sharedKey = crypto.SharedKey{}
		c.pendingDeviceID = ""
		c.pendingDeviceName = ""
		return nil, &Error{Code: model.CodeMACMismatch}
	}

	authToken, err := crypto.DeriveAuthToken(c.sharedKey)
	if err != nil {
		return nil, fmt.Errorf("pairing: derive auth token: %w", err)
	}
	encryptionKey, err := crypto.DeriveEncryptionKey(c.sharedKey)
	if err != nil {
		return nil, fmt.Errorf("pairing: derive encryption key: %w", err)
	}

	record := model.Client{
		DeviceID:      c.pendingDeviceID,
		DeviceName:    c.pendingDeviceName,
		AuthTokenHash: crypto.HashAuthToken(authToken),
		EncryptionKey: base64.StdEncoding.EncodeToString(encryptionKey),
		CreatedAt:     time.Now().UTC(),
	}
	if err := c.registry.Add(record); err != nil {
		return nil, fmt.Errorf("pairing: add client: %w", err)
	}

	result := &CompleteResult{
		ServerMAC:       c.sharedKey.ServerConfirm(),
		WorkstationID:   c.workstationID,
		WorkstationName: c.workstationName,
		DeviceID:        record.DeviceID,
		AuthToken:       authToken,
		EncryptionKey:   encryptionKey,
	}

	// Completed is transient: the coordinator immediately resets to Idle
	// (spec §4.5) so a fresh Start can begin, latching the outcome for the
	// next one-shot Status() poll.
	c.completedPending = true
	c.completedDeviceID = record.DeviceID
	c.completedDeviceName = record.DeviceName
	c.resetLocked()
	return result, nil
}

// Cancel explicitly aborts the active pairing attempt, if any.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	hadPending := c.state != StateIdle
	if c.timer != nil {
		c.timer.Stop()
	}
	c.resetLocked()
	c.mu.Unlock()

	if hadPending {
		c.emit(model.CodeTimeout)
	}
}

func (c *Coordinator) resetLocked() {
	c.state = StateIdle
	c.code = ""
	c.server = nil
	c.sharedKey = crypto.SharedKey{}
	c.pendingDeviceID = ""
	c.pendingDeviceName = ""
}
