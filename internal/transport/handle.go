// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/crypto"
	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/pairing"
)

// sessionsSnapshot and projectsSnapshot are the bodies of the outbound
// "sessions" and "projects" events (spec §4.9, §6).
type sessionsSnapshot struct {
	Sessions []model.Session `json:"sessions"`
}

type projectsSnapshot struct {
	Projects []model.ProjectSummary `json:"projects"`
}

type batchAck struct {
	BatchID string `json:"batchId"`
}

// handle routes one decoded frame to the right handler. Pairing events are
// the only ones an unauthenticated socket may send.
func (s *Server) handle(ctx context.Context, sock *socket, msg Message) {
	switch msg.Event {
	case eventPairInit:
		s.handlePairInit(sock, msg)
		return
	case eventPairConfirm:
		s.handlePairConfirm(sock, msg)
		return
	}

	if !sock.isAuthenticated() {
		return
	}

	switch msg.Event {
	case eventInit:
		s.handleInit(ctx, sock, msg)
	case eventPing:
		sock.touchAck()
		_ = sock.emit(eventAck, nil, msg.AckID, false)
	case eventAck:
		s.handleClientAck(sock, msg)
	default:
		if _, ok := s.actions[msg.Event]; ok {
			s.handleAction(ctx, sock, msg)
		}
	}
}

// handleInit runs the cursor-based resume sync (spec §4.9): a protocol
// version check, then sessions (awaited), projects (fire-and-forget), then
// one per-session catch-up batch, sent and acked sequentially.
func (s *Server) handleInit(ctx context.Context, sock *socket, msg Message) {
	var payload model.InitPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return
	}

	if payload.ProtocolVersion != model.ProtocolVersion {
		errData := mustMarshal(model.ProtocolError{
			Code:     model.CodeProtocolMismatch,
			Expected: model.ProtocolVersion,
			Received: payload.ProtocolVersion,
		})
		_ = sock.emit(eventProtocolError, errData, "", false)
		sock.conn.Close()
		return
	}

	sessions := s.deps.Sessions.GetActiveSessions()
	_ = sock.emit(eventSessions, mustMarshal(sessionsSnapshot{Sessions: sessions}), "", true)

	projects := s.buildProjects()
	go func() {
		_ = sock.emit(eventProjects, mustMarshal(projectsSnapshot{Projects: projects}), "", true)
	}()

	cursorFor := make(map[string]string, len(payload.Cursor))
	for _, c := range payload.Cursor {
		cursorFor[c.SessionID] = c.LastMessageTs
	}

	for _, sess := range sessions {
		items := s.catchUpItems(sess.SessionID, cursorFor[sess.SessionID])
		if len(items) == 0 {
			continue
		}

		batch := model.TimelineBatch{WorkstationID: s.deps.WorkstationID, Items: items}
		done := make(chan struct{})
		sock.queue.Enqueue(batch, true, func() { close(done) })

		select {
		case <-done:
		case <-s.shutdown:
			return
		}
	}
}

// catchUpItems merges a session's transcript lines since lastTs with its
// most recent persisted permission event, sorted by timestamp ascending
// with transcript lines sorting first on a tie.
func (s *Server) catchUpItems(sessionID, lastTs string) []model.TimelineItem {
	lines := s.deps.Watcher.GetLinesSince(sessionID, lastTs)
	items := make([]model.TimelineItem, 0, len(lines)+1)
	for _, l := range lines {
		items = append(items, model.TimelineItem{SessionID: sessionID, Payload: l.Raw, Timestamp: l.Timestamp})
	}

	if ev, ok, err := s.deps.EventLog.Latest(sessionID); err == nil && ok {
		items = append(items, model.TimelineItem{
			SessionID: sessionID, Payload: ev.Payload, Timestamp: ev.Timestamp, IsPermission: true,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Timestamp != items[j].Timestamp {
			return items[i].Timestamp < items[j].Timestamp
		}
		return !items[i].IsPermission && items[j].IsPermission
	})
	return items
}

// buildProjects assigns one watched root to each enabled provider, in
// declaration order, by convention (SPEC_FULL §4.15): watchPaths carries no
// explicit provider tag.
func (s *Server) buildProjects() []model.ProjectSummary {
	if s.deps.Config == nil {
		return nil
	}

	enabled := []struct {
		provider model.Provider
		on       bool
	}{
		{model.ProviderClaude, s.deps.Config.EnabledProviders.Claude},
		{model.ProviderCodex, s.deps.Config.EnabledProviders.Codex},
		{model.ProviderGemini, s.deps.Config.EnabledProviders.Gemini},
	}

	paths := s.deps.Config.WatchPaths
	var out []model.ProjectSummary
	next := 0
	for _, e := range enabled {
		if !e.on {
			continue
		}
		root := ""
		switch {
		case next < len(paths):
			root = paths[next]
			next++
		case len(paths) > 0:
			root = paths[len(paths)-1]
		}
		out = append(out, model.ProjectSummary{Provider: e.provider, Root: root})
	}
	return out
}

// handleClientAck marks a delivered batch acked so the per-socket queue can
// advance, and updates LastAckAt for Control-plane reporting.
func (s *Server) handleClientAck(sock *socket, msg Message) {
	plain, err := s.decodePayload(sock, msg.Data)
	if err != nil {
		return
	}
	var ack batchAck
	if err := json.Unmarshal(plain, &ack); err != nil {
		return
	}
	sock.touchAck()
	if sock.queue != nil && ack.BatchID != "" {
		sock.queue.Ack(ack.BatchID)
	}
}

// handleAction decrypts an action payload if needed, routes it to the
// dispatcher, and acks the result.
func (s *Server) handleAction(ctx context.Context, sock *socket, msg Message) {
	plain, err := s.decodePayload(sock, msg.Data)
	if err != nil {
		s.ackResult(sock, msg.AckID, model.Error(model.CodeDecryptError, err.Error()))
		return
	}

	fn := s.actions[msg.Event]
	s.ackResult(sock, msg.AckID, fn(ctx, plain))
}

func (s *Server) ackResult(sock *socket, ackID string, result model.ActionResult) {
	if err := sock.emit(eventAck, mustMarshal(result), ackID, true); err != nil {
		log.Printf("[transport] ack socket %s: %v", sock.id, err)
	}
}

// decodePayload runs the inbound plain-vs-enveloped detection the encrypted
// actions require (spec §4.7): raw may already be plaintext JSON or an AEAD
// envelope.
func (s *Server) decodePayload(sock *socket, raw json.RawMessage) (json.RawMessage, error) {
	if !crypto.LooksLikeEnvelope(raw) {
		return raw, nil
	}

	var env crypto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("transport: parse envelope: %w", err)
	}
	key := sock.encryptionKeySnapshot()
	if key == nil {
		return nil, fmt.Errorf("transport: socket %s has no encryption key", sock.id)
	}
	return crypto.Open(key, &env)
}

// handlePairInit and handlePairConfirm route the unauthenticated SPAKE2
// exchange to the pairing coordinator (spec §4.5). Both pair:challenge and
// pair:complete travel unencrypted: the pairing channel's security rests on
// SPAKE2 itself, not on transport AEAD (spec §4.7).
func (s *Server) handlePairInit(sock *socket, msg Message) {
	var in model.PairInit
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		return
	}

	spakeMsg, err := decodeBase64(in.Spake2Message)
	if err != nil {
		s.emitPairError(sock, model.CodeInvalidFormat)
		return
	}

	serverMsg, err := s.deps.Pairing.HandlePairInit(in.DeviceID, in.DeviceName, spakeMsg)
	if err != nil {
		s.emitPairError(sock, pairingErrorCode(err))
		return
	}

	s.setPairingSocket(sock)
	challenge := model.PairChallenge{Spake2Message: encodeBase64(serverMsg)}
	_ = sock.emit(eventPairChallenge, mustMarshal(challenge), "", false)
}

func (s *Server) handlePairConfirm(sock *socket, msg Message) {
	var in model.PairConfirm
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		return
	}

	mac, err := decodeBase64(in.MAC)
	if err != nil {
		s.emitPairError(sock, model.CodeInvalidFormat)
		return
	}

	result, err := s.deps.Pairing.HandlePairConfirm(mac)
	if err != nil {
		s.emitPairError(sock, pairingErrorCode(err))
		return
	}
	s.clearPairingSocket(sock)

	complete := model.PairComplete{
		MAC:             encodeBase64(result.ServerMAC),
		WorkstationID:   result.WorkstationID,
		WorkstationName: result.WorkstationName,
		DeviceID:        result.DeviceID,
		AuthToken:       encodeBase64(result.AuthToken),
		EncryptionKey:   encodeBase64(result.EncryptionKey),
	}
	_ = sock.emit(eventPairComplete, mustMarshal(complete), "", false)
}

func (s *Server) emitPairError(sock *socket, code string) {
	_ = sock.emit(eventPairError, mustMarshal(model.PairError{Code: code}), "", false)
}

func pairingErrorCode(err error) string {
	var pe *pairing.Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return model.CodeInvalidFormat
}

// subscribeLive wires live session/message/permission events to every
// authenticated socket's outbound queue, so a connected client sees new
// transcript activity without waiting for its next reconnect sync.
func (s *Server) subscribeLive() {
	if s.deps.Bus == nil {
		return
	}
	s.subs = append(s.subs,
		s.deps.Bus.OnAsync(bus.KindMessagesNew, s.onMessagesNew, 256),
		s.deps.Bus.OnAsync(bus.KindPermissionRequest, s.onPermissionRequest, 256),
		s.deps.Bus.OnAsync(bus.KindSessionsChange, s.onSessionsChange, 64),
	)
}

func (s *Server) onMessagesNew(_ context.Context, ev bus.Event) {
	payload, ok := ev.Payload.(bus.MessagesNewPayload)
	if !ok || len(payload.Lines) == 0 {
		return
	}

	items := make([]model.TimelineItem, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		items = append(items, model.TimelineItem{SessionID: payload.SessionID, Payload: l.Raw, Timestamp: l.Timestamp})
	}
	batch := model.TimelineBatch{WorkstationID: s.deps.WorkstationID, Items: items}
	for _, sock := range s.reg.authenticatedSockets() {
		sock.queue.Enqueue(batch, true, nil)
	}
}

// onPermissionRequest persists the event to its session's log (so a later
// reconnect's resume sync can retrieve it) and, independently, pushes it
// live to every connected socket as a "messages" item flagged IsPermission
// — there is no separate wire event for a live permission push, it rides
// the same channel as transcript lines.
func (s *Server) onPermissionRequest(_ context.Context, ev bus.Event) {
	payload, ok := ev.Payload.(bus.PermissionRequestPayload)
	if !ok {
		return
	}

	if s.deps.EventLog != nil {
		if err := s.deps.EventLog.Append(payload.SessionID, payload.Event); err != nil {
			log.Printf("[transport] persist permission event for session %s: %v", payload.SessionID, err)
		}
	}

	item := model.TimelineItem{
		SessionID: payload.SessionID, Payload: payload.Event.Payload,
		Timestamp: payload.Event.Timestamp, IsPermission: true,
	}
	batch := model.TimelineBatch{WorkstationID: s.deps.WorkstationID, Items: []model.TimelineItem{item}}
	for _, sock := range s.reg.authenticatedSockets() {
		sock.queue.Enqueue(batch, true, nil)
	}
}

func (s *Server) onSessionsChange(_ context.Context, ev bus.Event) {
	payload, ok := ev.Payload.(bus.SessionsChangePayload)
	if !ok {
		return
	}
	data := mustMarshal(sessionsSnapshot{Sessions: payload.Sessions})
	for _, sock := range s.reg.authenticatedSockets() {
		_ = sock.emit(eventSessions, data, "", true)
	}
}

func unmarshalStrict(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[transport] marshal %T: %v", v, err)
		return json.RawMessage("null")
	}
	return b
}
