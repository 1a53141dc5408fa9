// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/config"
	"github.com/shaneholloman/arc0d/internal/dispatch"
	"github.com/shaneholloman/arc0d/internal/eventlog"
	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/pairing"
	"github.com/shaneholloman/arc0d/internal/queue"
	"github.com/shaneholloman/arc0d/internal/session"
	"github.com/shaneholloman/arc0d/internal/watcher"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dependencies wires the Server to every component that owns state it
// needs to read or act on.
type Dependencies struct {
	Bus        bus.Bus
	Clients    *clients.Registry
	Sessions   *session.Registry
	Watcher    *watcher.FileWatcher
	EventLog   *eventlog.Store
	Pairing    *pairing.Coordinator
	Dispatcher *dispatch.Dispatcher
	Config     *config.Config

	WorkstationID   string
	WorkstationName string
}

// Server is the Data transport's websocket listener (spec §4.7).
type Server struct {
	deps     Dependencies
	reg      *registry
	queues   *queue.Manager
	actions  map[string]actionFunc
	subs     []bus.SubscriptionID
	shutdown chan struct{}

	// pairingMu guards pairingSocket: the coordinator has no notion of
	// sockets, so the transport itself remembers which unauthenticated
	// connection is mid-exchange in order to route onPairingError.
	pairingMu     sync.Mutex
	pairingSocket *socket
}

// actionFunc is the dispatcher-method shape every encrypted action shares.
type actionFunc func(context.Context, json.RawMessage) model.ActionResult

// NewServer builds a Server and subscribes it to live session/message/
// permission events for fan-out to authenticated sockets.
func NewServer(deps Dependencies) *Server {
	s := &Server{
		deps:     deps,
		reg:      newRegistry(),
		queues:   queue.NewManager(),
		shutdown: make(chan struct{}),
	}
	if deps.Dispatcher != nil {
		s.actions = map[string]actionFunc{
			eventOpenSession:    deps.Dispatcher.OpenSession,
			eventSendPrompt:     deps.Dispatcher.SendPrompt,
			eventStopAgent:      deps.Dispatcher.StopAgent,
			eventApproveToolUse: deps.Dispatcher.ApproveToolUse,
		}
	}
	s.subscribeLive()

	if deps.Clients != nil {
		deps.Clients.OnRevoke(s.onClientRevoked)
	}
	if deps.Pairing != nil {
		deps.Pairing.OnError(s.onPairingError)
	}
	return s
}

// ConnectedSockets implements the closure shape internal/control.Dependencies
// expects, without either package importing the other.
func (s *Server) ConnectedSockets() []SocketSnapshot {
	return s.reg.snapshots()
}

// ServeHTTP upgrades the connection, authenticates it from the handshake's
// query parameters if present, and runs its read loop until close. A
// connection with no valid deviceId/authToken pair stays unauthenticated
// and may only exchange pairing events (spec §4.7 step 1-3).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[transport] upgrade failed: %v", err)
		return
	}

	sock := newSocket(newSocketID(), conn, s)
	s.authenticateHandshake(sock, r)

	s.reg.add(sock)
	sock.queue = s.queues.Register(sock.id, sock)

	defer func() {
		s.reg.remove(sock.id)
		s.queues.Unregister(sock.id)
		s.clearPairingSocket(sock)
		conn.Close()
	}()

	s.readLoop(r.Context(), sock)
}

func (s *Server) authenticateHandshake(sock *socket, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	authToken := r.URL.Query().Get("authToken")
	if deviceID == "" || authToken == "" || s.deps.Clients == nil {
		return
	}

	tokenBytes, err := decodeBase64(authToken)
	if err != nil || !s.deps.Clients.Validate(deviceID, tokenBytes) {
		return
	}

	client, ok := s.deps.Clients.Get(deviceID)
	if !ok {
		return
	}
	key, err := decodeBase64(client.EncryptionKey)
	if err != nil {
		return
	}

	sock.markAuthenticated(deviceID, key)
	if err := s.deps.Clients.Touch(deviceID); err != nil {
		log.Printf("[transport] touch device %s: %v", deviceID, err)
	}
}

// Shutdown stops live fan-out and quiesces every outbound queue (spec
// §4.12 shutdown sequence step "stop queues").
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdown)
	for _, id := range s.subs {
		s.deps.Bus.Off(id)
	}
	s.queues.Stop()
	return nil
}

func (s *Server) readLoop(ctx context.Context, sock *socket) {
	sock.conn.SetReadDeadline(time.Now().Add(pongWait))
	sock.conn.SetPongHandler(func(string) error {
		sock.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go s.pingLoop(sock, done)
	defer close(done)

	for {
		_, raw, err := sock.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg Message
		if err := unmarshalStrict(raw, &msg); err != nil {
			continue
		}
		s.handle(ctx, sock, msg)
	}
}

func (s *Server) pingLoop(sock *socket, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sock.writeMu.Lock()
			err := sock.conn.WriteMessage(websocket.PingMessage, nil)
			sock.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		case <-s.shutdown:
			return
		}
	}
}

func (s *Server) onClientRevoked(deviceID string) {
	for _, sock := range s.reg.byDeviceID(deviceID) {
		sock.conn.Close()
	}
}

// onPairingError notifies whichever socket is currently mid pairing
// exchange of a coordinator-side timeout or cancellation; it has nothing to
// do with authenticated sockets (spec §4.5, pairing.ErrorNotifier).
func (s *Server) onPairingError(code string) {
	s.pairingMu.Lock()
	sock := s.pairingSocket
	s.pairingMu.Unlock()
	if sock == nil {
		return
	}
	_ = sock.emit(eventPairError, mustMarshal(model.PairError{Code: code}), "", false)
}

func (s *Server) setPairingSocket(sock *socket) {
	s.pairingMu.Lock()
	s.pairingSocket = sock
	s.pairingMu.Unlock()
}

func (s *Server) clearPairingSocket(sock *socket) {
	s.pairingMu.Lock()
	if s.pairingSocket == sock {
		s.pairingSocket = nil
	}
	s.pairingMu.Unlock()
}
