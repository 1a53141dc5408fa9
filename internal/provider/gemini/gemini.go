// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gemini is the Gemini CLI ProviderStrategy: it scans
// ~/.gemini/tmp for per-session liveness markers and their JSON chat logs.
package gemini

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/provider/shared"
)

const defaultRoot = "~/.gemini/tmp"

// Strategy implements session.Strategy for Gemini.
type Strategy struct {
	root string
}

// New creates a gemini Strategy. An empty root defaults to ~/.gemini/tmp.
func New(root string) *Strategy {
	if root == "" {
		root = shared.ExpandHome(defaultRoot)
	}
	return &Strategy{root: root}
}

// Provider implements session.Strategy.
func (s *Strategy) Provider() model.Provider { return model.ProviderGemini }

// WatchRoots implements session.Strategy.
func (s *Strategy) WatchRoots() []string { return []string{s.root} }

// Scan implements session.Strategy.
func (s *Strategy) Scan(ctx context.Context) ([]model.Session, error) {
	return shared.ScanLivenessMarkers(filepath.Join(s.root, "*", "*.sessions.json"), model.ProviderGemini)
}

// TerminatorSeen reports whether a chat-log line marks a completed Gemini
// turn. Best-effort hint only; liveness-marker removal remains
// authoritative (see internal/session.Registry.reconcile).
func TerminatorSeen(line json.RawMessage) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	return probe.Type == "turn_complete"
}
