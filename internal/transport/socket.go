// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaneholloman/arc0d/internal/crypto"
	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/queue"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// socket is one live data-transport connection. Pairing sockets never
// authenticate and carry no encryptionKey; paired sockets do.
type socket struct {
	id          string
	conn        *websocket.Conn
	server      *Server
	connectedAt time.Time

	writeMu sync.Mutex

	mu            sync.RWMutex
	authenticated bool
	deviceID      string
	encryptionKey []byte
	lastAckAt     *time.Time

	queue *queue.Queue
}

func newSocket(id string, conn *websocket.Conn, srv *Server) *socket {
	return &socket{id: id, conn: conn, server: srv, connectedAt: time.Now()}
}

// Send implements queue.Transmitter: it frames batch as a "messages" event,
// encrypting it first if the socket is authenticated (spec §4.7).
func (s *socket) Send(batch model.TimelineBatch, encrypted bool) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("transport: marshal batch: %w", err)
	}
	return s.emit(eventMessages, data, "", encrypted)
}

// emit writes one frame, sealing data in an AEAD envelope first when
// encrypt is true. ackID, if set, is echoed on the outbound Message so the
// peer can correlate a later "ack" frame (used for action replies, not for
// batches — batches carry their own batchId inside the payload).
func (s *socket) emit(event string, data json.RawMessage, ackID string, encrypt bool) error {
	if encrypt {
		key := s.encryptionKeySnapshot()
		if key == nil {
			return fmt.Errorf("transport: socket %s has no encryption key", s.id)
		}
		env, err := crypto.Seal(key, data)
		if err != nil {
			return fmt.Errorf("transport: seal: %w", err)
		}
		data, err = json.Marshal(env)
		if err != nil {
			return fmt.Errorf("transport: marshal envelope: %w", err)
		}
	}

	msg := Message{Event: event, Data: data, AckID: ackID}
	return s.writeJSON(msg)
}

func (s *socket) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

func (s *socket) encryptionKeySnapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.encryptionKey == nil {
		return nil
	}
	key := make([]byte, len(s.encryptionKey))
	copy(key, s.encryptionKey)
	return key
}

func (s *socket) markAuthenticated(deviceID string, encryptionKey []byte) {
	s.mu.Lock()
	s.authenticated = true
	s.deviceID = deviceID
	s.encryptionKey = encryptionKey
	s.mu.Unlock()
}

func (s *socket) isAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *socket) deviceIDSnapshot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceID
}

func (s *socket) touchAck() {
	now := time.Now()
	s.mu.Lock()
	s.lastAckAt = &now
	s.mu.Unlock()
}

func (s *socket) snapshot() SocketSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SocketSnapshot{
		SocketID:    s.id,
		DeviceID:    s.deviceID,
		ConnectedAt: s.connectedAt,
		LastAckAt:   s.lastAckAt,
	}
}

// newSocketID returns a fresh random identifier for a connection, distinct
// from any device or session id.
func newSocketID() string {
	return uuid.New().String()
}

// decodeBase64 is a small helper so handlers read uniformly.
func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
