// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package codex is the OpenAI Codex CLI ProviderStrategy: it scans
// ~/.codex/sessions for per-session liveness markers and their JSONL
// transcripts.
package codex

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/provider/shared"
)

const defaultRoot = "~/.codex/sessions"

// Strategy implements session.Strategy for Codex.
type Strategy struct {
	root string
}

// New creates a codex Strategy. An empty root defaults to
// ~/.codex/sessions.
func New(root string) *Strategy {
	if root == "" {
		root = shared.ExpandHome(defaultRoot)
	}
	return &Strategy{root: root}
}

// Provider implements session.Strategy.
func (s *Strategy) Provider() model.Provider { return model.ProviderCodex }

// WatchRoots implements session.Strategy.
func (s *Strategy) WatchRoots() []string { return []string{s.root} }

// Scan implements session.Strategy.
func (s *Strategy) Scan(ctx context.Context) ([]model.Session, error) {
	return shared.ScanLivenessMarkers(filepath.Join(s.root, "*", "*.sessions.json"), model.ProviderCodex)
}

// TerminatorSeen reports whether a transcript line marks a completed Codex
// turn. As with the other providers, process-exit is not persisted to the
// transcript; this is a best-effort hint and liveness-marker removal
// remains authoritative (see internal/session.Registry.reconcile).
func TerminatorSeen(line json.RawMessage) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	return probe.Type == "task_complete"
}
