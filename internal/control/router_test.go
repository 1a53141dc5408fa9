// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/pairing"
	"github.com/shaneholloman/arc0d/internal/session"
)

func testDeps(t *testing.T) Dependencies {
	t.Helper()
	reg, err := clients.Load(filepath.Join(t.TempDir(), "clients.json"))
	require.NoError(t, err)

	sessions := session.NewRegistry(bus.NewMemoryBus(), nil)
	require.NoError(t, sessions.Start(context.Background()))
	t.Cleanup(func() { _ = sessions.Close() })

	coordinator := pairing.New(reg, "ws-1", "Test Mac", 100*time.Millisecond)
	coordinator.SetEnabled(true)

	return Dependencies{
		StartedAt: time.Now().Add(-time.Minute),
		Sessions:  sessions,
		Clients:   reg,
		Pairing:   coordinator,
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:4321"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Status(t *testing.T) {
	router := NewRouter(testDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)
}

func TestRouter_Clients_EmptyWithoutTransport(t *testing.T) {
	router := NewRouter(testDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/clients")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_Sessions_Empty(t *testing.T) {
	router := NewRouter(testDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/sessions")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_PairingLifecycle(t *testing.T) {
	router := NewRouter(testDeps(t))

	start := doRequest(t, router, http.MethodPost, "/api/pairing/start")
	assert.Equal(t, http.StatusOK, start.Code)
	assert.Contains(t, start.Body.String(), `"formattedCode"`)

	status := doRequest(t, router, http.MethodGet, "/api/pairing/status")
	assert.Equal(t, http.StatusOK, status.Code)
	assert.Contains(t, status.Body.String(), `"active":true`)

	cancel := doRequest(t, router, http.MethodPost, "/api/pairing/cancel")
	assert.Equal(t, http.StatusOK, cancel.Code)

	status = doRequest(t, router, http.MethodGet, "/api/pairing/status")
	assert.NotContains(t, status.Body.String(), `"active":true`)
}

func TestRouter_PairingStart_DisabledReturnsConflict(t *testing.T) {
	deps := testDeps(t)
	deps.Pairing.SetEnabled(false)
	router := NewRouter(deps)

	rec := doRequest(t, router, http.MethodPost, "/api/pairing/start")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAIRING_DISABLED")
}

func TestRouter_TunnelStop_NoSupervisorIsNoop(t *testing.T) {
	router := NewRouter(testDeps(t))
	rec := doRequest(t, router, http.MethodPost, "/api/tunnel/stop")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
}

func TestRouter_UnknownRouteReturns404(t *testing.T) {
	router := NewRouter(testDeps(t))
	rec := doRequest(t, router, http.MethodGet, "/api/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RejectsNonLocalhost(t *testing.T) {
	router := NewRouter(testDeps(t))
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.RemoteAddr = "198.51.100.7:9999"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
