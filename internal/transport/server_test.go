// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/crypto"
	"github.com/shaneholloman/arc0d/internal/dispatch"
	"github.com/shaneholloman/arc0d/internal/eventlog"
	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/pairing"
	"github.com/shaneholloman/arc0d/internal/session"
	"github.com/shaneholloman/arc0d/internal/terminal"
	"github.com/shaneholloman/arc0d/internal/watcher"
)

type fakeSessionStrategy struct {
	provider model.Provider
	sessions []model.Session
}

func (f *fakeSessionStrategy) Provider() model.Provider { return f.provider }
func (f *fakeSessionStrategy) WatchRoots() []string      { return nil }
func (f *fakeSessionStrategy) Scan(ctx context.Context) ([]model.Session, error) {
	return f.sessions, nil
}

type fakeAdapter struct {
	installed bool
	panes     map[string]terminal.PaneRef
}

func (a *fakeAdapter) IsInstalled() bool { return a.installed }
func (a *fakeAdapter) FindPaneByTty(ctx context.Context, tty string) (terminal.PaneRef, bool) {
	p, ok := a.panes[tty]
	return p, ok
}
func (a *fakeAdapter) EnsureDefaultSession(ctx context.Context) (string, error) {
	return terminal.DefaultSessionName, nil
}
func (a *fakeAdapter) CreateWindow(ctx context.Context, name, cwd string, command []string) (terminal.PaneRef, error) {
	return terminal.PaneRef{}, nil
}
func (a *fakeAdapter) SendText(ctx context.Context, pane terminal.PaneRef, text string, pressEnter bool) error {
	return nil
}
func (a *fakeAdapter) SendKey(ctx context.Context, pane terminal.PaneRef, keyName string) error {
	return nil
}

// testHarness bundles a running Server behind an httptest.Server plus every
// dependency a test might need to inspect.
type testHarness struct {
	srv     *Server
	http    *httptest.Server
	clients *clients.Registry
	pairing *pairing.Coordinator
	bus     bus.Bus
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	clientsPath := t.TempDir() + "/clients.json"
	reg, err := clients.Load(clientsPath)
	require.NoError(t, err)

	coord := pairing.New(reg, "ws-1", "My Workstation", 2*time.Second)

	b := bus.NewMemoryBus()
	sessReg := session.NewRegistry(b, []session.Strategy{&fakeSessionStrategy{provider: model.ProviderClaude}})
	require.NoError(t, sessReg.Start(context.Background()))
	t.Cleanup(func() { _ = sessReg.Close() })

	fw, err := watcher.NewFileWatcher(b)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Close() })

	store := eventlog.NewStore(t.TempDir())

	adapter := &fakeAdapter{installed: true}
	d := dispatch.New(adapter, sessReg)

	srv := NewServer(Dependencies{
		Bus:             b,
		Clients:         reg,
		Sessions:        sessReg,
		Watcher:         fw,
		EventLog:        store,
		Pairing:         coord,
		Dispatcher:      d,
		WorkstationID:   "ws-1",
		WorkstationName: "My Workstation",
	})

	ts := httptest.NewServer(http.HandlerFunc(srv.ServeHTTP))
	t.Cleanup(ts.Close)

	return &testHarness{srv: srv, http: ts, clients: reg, pairing: coord, bus: b}
}

func (h *testHarness) wsURL(query string) string {
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/"
	if query != "" {
		url += "?" + query
	}
	return url
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_PairingHandshake_FullFlow(t *testing.T) {
	h := newTestHarness(t)

	start, err := h.pairing.Start()
	require.NoError(t, err)

	client, err := crypto.NewClient(start.Code)
	require.NoError(t, err)

	conn := dial(t, h.wsURL(""))

	initMsg := Message{Event: eventPairInit, Data: mustMarshal(model.PairInit{
		DeviceID: "device-1", DeviceName: "Pixel", Spake2Message: base64.StdEncoding.EncodeToString(client.Message()),
	})}
	require.NoError(t, conn.WriteJSON(initMsg))

	challengeMsg := readMessage(t, conn)
	assert.Equal(t, eventPairChallenge, challengeMsg.Event)

	var challenge model.PairChallenge
	require.NoError(t, json.Unmarshal(challengeMsg.Data, &challenge))
	serverMsg, err := base64.StdEncoding.DecodeString(challenge.Spake2Message)
	require.NoError(t, err)

	sharedKey, err := client.Finish(serverMsg)
	require.NoError(t, err)

	confirmMsg := Message{Event: eventPairConfirm, Data: mustMarshal(model.PairConfirm{
		MAC: base64.StdEncoding.EncodeToString(sharedKey.ClientConfirm()),
	})}
	require.NoError(t, conn.WriteJSON(confirmMsg))

	completeMsg := readMessage(t, conn)
	assert.Equal(t, eventPairComplete, completeMsg.Event)

	var complete model.PairComplete
	require.NoError(t, json.Unmarshal(completeMsg.Data, &complete))
	assert.Equal(t, "device-1", complete.DeviceID)
	assert.Equal(t, "ws-1", complete.WorkstationID)

	record, ok := h.clients.Get("device-1")
	assert.True(t, ok)
	assert.Equal(t, "Pixel", record.DeviceName)
}

func TestServer_PairingHandshake_WrongCodeYieldsMacMismatch(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.pairing.Start()
	require.NoError(t, err)

	client, err := crypto.NewClient("000000") // almost certainly wrong
	require.NoError(t, err)

	conn := dial(t, h.wsURL(""))
	initMsg := Message{Event: eventPairInit, Data: mustMarshal(model.PairInit{
		DeviceID: "device-2", Spake2Message: base64.StdEncoding.EncodeToString(client.Message()),
	})}
	require.NoError(t, conn.WriteJSON(initMsg))

	challengeMsg := readMessage(t, conn)
	require.Equal(t, eventPairChallenge, challengeMsg.Event)

	var challenge model.PairChallenge
	require.NoError(t, json.Unmarshal(challengeMsg.Data, &challenge))
	serverMsg, err := base64.StdEncoding.DecodeString(challenge.Spake2Message)
	require.NoError(t, err)

	sharedKey, err := client.Finish(serverMsg)
	require.NoError(t, err)

	confirmMsg := Message{Event: eventPairConfirm, Data: mustMarshal(model.PairConfirm{
		MAC: base64.StdEncoding.EncodeToString(sharedKey.ClientConfirm()),
	})}
	require.NoError(t, conn.WriteJSON(confirmMsg))

	errMsg := readMessage(t, conn)
	assert.Equal(t, eventPairError, errMsg.Event)

	var pairErr model.PairError
	require.NoError(t, json.Unmarshal(errMsg.Data, &pairErr))
	assert.Equal(t, model.CodeMACMismatch, pairErr.Code)
}

// pairedFixture registers a client directly in the registry (bypassing the
// handshake) and returns the query string an authenticated dial needs.
func pairedFixture(t *testing.T, h *testHarness, deviceID string) (authToken, encryptionKey []byte) {
	t.Helper()
	authToken = []byte("0123456789abcdef0123456789abcdef")
	encryptionKey = []byte("fedcba9876543210fedcba9876543210")

	require.NoError(t, h.clients.Add(model.Client{
		DeviceID:      deviceID,
		DeviceName:    "Test Device",
		AuthTokenHash: crypto.HashAuthToken(authToken),
		EncryptionKey: base64.StdEncoding.EncodeToString(encryptionKey),
	}))
	return authToken, encryptionKey
}

func authenticatedQuery(deviceID string, authToken []byte) string {
	return "deviceId=" + deviceID + "&authToken=" + base64.StdEncoding.EncodeToString(authToken)
}

func TestServer_Init_SendsSessionsThenProjects(t *testing.T) {
	h := newTestHarness(t)
	authToken, encKey := pairedFixture(t, h, "device-1")

	conn := dial(t, h.wsURL(authenticatedQuery("device-1", authToken)))

	initMsg := Message{Event: eventInit, Data: mustMarshal(model.InitPayload{
		DeviceID: "device-1", ProtocolVersion: model.ProtocolVersion,
	})}
	require.NoError(t, conn.WriteJSON(initMsg))

	sessionsMsg := readMessage(t, conn)
	require.Equal(t, eventSessions, sessionsMsg.Event)
	plain := decryptFrame(t, encKey, sessionsMsg.Data)
	var snap sessionsSnapshot
	require.NoError(t, json.Unmarshal(plain, &snap))

	projectsMsg := readMessage(t, conn)
	assert.Equal(t, eventProjects, projectsMsg.Event)
}

func TestServer_ProtocolMismatch_ClosesConnection(t *testing.T) {
	h := newTestHarness(t)
	authToken, _ := pairedFixture(t, h, "device-1")

	conn := dial(t, h.wsURL(authenticatedQuery("device-1", authToken)))

	initMsg := Message{Event: eventInit, Data: mustMarshal(model.InitPayload{
		DeviceID: "device-1", ProtocolVersion: "0.1",
	})}
	require.NoError(t, conn.WriteJSON(initMsg))

	errMsg := readMessage(t, conn)
	assert.Equal(t, eventProtocolError, errMsg.Event)

	var protoErr model.ProtocolError
	require.NoError(t, json.Unmarshal(errMsg.Data, &protoErr))
	assert.Equal(t, model.CodeProtocolMismatch, protoErr.Code)
	assert.Equal(t, model.ProtocolVersion, protoErr.Expected)
	assert.Equal(t, "0.1", protoErr.Received)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestServer_UnauthenticatedSocket_IgnoresNonPairingEvents(t *testing.T) {
	h := newTestHarness(t)
	conn := dial(t, h.wsURL(""))

	pingMsg := Message{Event: eventPing}
	require.NoError(t, conn.WriteJSON(pingMsg))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "unauthenticated socket must not ack a non-pairing event")
}

func TestServer_ActionDispatch_InvalidPayloadAcksError(t *testing.T) {
	h := newTestHarness(t)
	authToken, _ := pairedFixture(t, h, "device-1")

	conn := dial(t, h.wsURL(authenticatedQuery("device-1", authToken)))

	actionMsg := Message{Event: eventOpenSession, Data: json.RawMessage(`{"cwd":""}`), AckID: "ack-1"}
	require.NoError(t, conn.WriteJSON(actionMsg))

	ackMsg := readMessage(t, conn)
	assert.Equal(t, eventAck, ackMsg.Event)
	assert.Equal(t, "ack-1", ackMsg.AckID)
}

func decryptFrame(t *testing.T, key []byte, data json.RawMessage) json.RawMessage {
	t.Helper()
	require.True(t, crypto.LooksLikeEnvelope(data))
	var env crypto.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	plain, err := crypto.Open(key, &env)
	require.NoError(t, err)
	return plain
}
