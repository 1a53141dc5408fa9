// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package control implements the Control plane: a localhost-only HTTP API
// (spec §4.11) for status, client/session listing, pairing, and tunnel
// control. It never touches the encrypted data transport.
package control

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/pairing"
	"github.com/shaneholloman/arc0d/internal/session"
)

// Dependencies aggregates everything the Control plane's handlers read.
type Dependencies struct {
	StartedAt time.Time
	Sessions  *session.Registry
	Clients   *clients.Registry
	Pairing   *pairing.Coordinator

	// ConnectedSockets reports the data transport's live connections.
	// Supplied by the composition root once internal/transport exists;
	// nil is tolerated and reported as an empty list.
	ConnectedSockets func() []SocketSnapshot

	// StopTunnel invokes the registered tunnel supervisor's stop handler.
	// nil is tolerated and reported as a no-op success.
	StopTunnel func() error
}

// SocketSnapshot is a read-only view of one connected data-transport
// socket, supplied by internal/transport.
type SocketSnapshot struct {
	SocketID    string
	DeviceID    string
	ConnectedAt time.Time
	LastAckAt   *time.Time
}

// NewRouter builds the Control plane's mux.Router.
func NewRouter(deps Dependencies) *mux.Router {
	h := &handlers{deps: deps}

	r := mux.NewRouter()
	r.Use(logging)
	r.Use(recovery)
	r.Use(localhostOnly)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)
	api.HandleFunc("/clients", h.clients).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.sessions).Methods(http.MethodGet)
	api.HandleFunc("/pairing/start", h.pairingStart).Methods(http.MethodPost)
	api.HandleFunc("/pairing/status", h.pairingStatus).Methods(http.MethodGet)
	api.HandleFunc("/pairing/cancel", h.pairingCancel).Methods(http.MethodPost)
	api.HandleFunc("/tunnel/stop", h.tunnelStop).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown route")
	})

	return r
}

// Server wraps the Control plane's router with a bindable http.Server.
type Server struct {
	router *mux.Router
	server *http.Server
}

// NewServer creates a Server for deps. It does not bind a listener;
// callers (the lifecycle manager) own port selection and call Serve.
func NewServer(deps Dependencies) *Server {
	return &Server{router: NewRouter(deps)}
}

// Serve runs the Control plane over an already-bound listener, blocking
// until the listener closes or Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.server = &http.Server{Handler: s.router}
	return s.server.Serve(ln)
}

// Shutdown gracefully stops the server, giving in-flight requests up to
// 10 seconds (or the caller's deadline, if shorter) to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}
