// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"net/http"
	"time"

	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/pairing"
)

type handlers struct {
	deps Dependencies
}

type statusResponse struct {
	Running      bool   `json:"running"`
	Uptime       string `json:"uptime"`
	ClientCount  int    `json:"clientCount"`
	SessionCount int    `json:"sessionCount"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, statusResponse{
		Running:      true,
		Uptime:       time.Since(h.deps.StartedAt).String(),
		ClientCount:  len(h.connectedSockets()),
		SessionCount: len(h.deps.Sessions.GetActiveSessions()),
	})
}

func (h *handlers) clients(w http.ResponseWriter, r *http.Request) {
	sockets := h.connectedSockets()
	out := make([]model.ConnectedSocket, 0, len(sockets))
	for _, s := range sockets {
		out = append(out, model.ConnectedSocket{
			SocketID:    s.SocketID,
			DeviceID:    s.DeviceID,
			ConnectedAt: s.ConnectedAt,
			LastAckAt:   s.LastAckAt,
		})
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h *handlers) sessions(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.deps.Sessions.GetActiveSessions())
}

type pairingStartResponse struct {
	Code          string `json:"code"`
	FormattedCode string `json:"formattedCode"`
	ExpiresIn     int64  `json:"expiresIn"`
}

func (h *handlers) pairingStart(w http.ResponseWriter, r *http.Request) {
	result, err := h.deps.Pairing.Start()
	if err != nil {
		if pairErr, ok := err.(*pairing.Error); ok {
			WriteError(w, http.StatusConflict, pairErr.Code, pairErr.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, pairingStartResponse{
		Code:          result.Code,
		FormattedCode: result.FormattedCode,
		ExpiresIn:     int64(time.Until(result.ExpiresAt) / time.Millisecond),
	})
}

func (h *handlers) pairingStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.deps.Pairing.Status())
}

func (h *handlers) pairingCancel(w http.ResponseWriter, r *http.Request) {
	h.deps.Pairing.Cancel()
	WriteJSON(w, http.StatusOK, model.Success())
}

func (h *handlers) tunnelStop(w http.ResponseWriter, r *http.Request) {
	if h.deps.StopTunnel == nil {
		WriteJSON(w, http.StatusOK, model.Success())
		return
	}
	if err := h.deps.StopTunnel(); err != nil {
		WriteError(w, http.StatusInternalServerError, "TUNNEL_STOP_FAILED", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, model.Success())
}

func (h *handlers) connectedSockets() []SocketSnapshot {
	if h.deps.ConnectedSockets == nil {
		return nil
	}
	return h.deps.ConnectedSockets()
}
