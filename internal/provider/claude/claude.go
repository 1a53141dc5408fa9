// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package claude is the Claude Code ProviderStrategy: it scans
// ~/.claude/projects for per-project liveness markers and their
// accompanying JSONL transcripts.
package claude

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/provider/shared"
)

const defaultRoot = "~/.claude/projects"

// Strategy implements session.Strategy for Claude Code.
type Strategy struct {
	root string
}

// New creates a claude Strategy. An empty root defaults to
// ~/.claude/projects.
func New(root string) *Strategy {
	if root == "" {
		root = shared.ExpandHome(defaultRoot)
	}
	return &Strategy{root: root}
}

// Provider implements session.Strategy.
func (s *Strategy) Provider() model.Provider { return model.ProviderClaude }

// WatchRoots implements session.Strategy.
func (s *Strategy) WatchRoots() []string { return []string{s.root} }

// Scan implements session.Strategy.
func (s *Strategy) Scan(ctx context.Context) ([]model.Session, error) {
	return shared.ScanLivenessMarkers(filepath.Join(s.root, "*", "*.sessions.json"), model.ProviderClaude)
}

// TerminatorSeen reports whether a transcript line marks the end of a
// Claude Code turn sequence. Claude rewrites a `"type":"summary"` line into
// existing transcripts during compaction; that is not a session-end signal
// and is explicitly ignored here. A genuine exit (a `result` event with
// `subtype:"success"`) is emitted to the CLI's own stdout, not persisted to
// the transcript, so it can never be observed this way — the registry's
// authoritative end signal is liveness-marker removal (see
// internal/session.Registry.reconcile), and TerminatorSeen exists only as
// a best-effort, lower-latency hint.
func TerminatorSeen(line json.RawMessage) bool {
	var probe struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	if probe.Type == "summary" {
		return false
	}
	return probe.Type == "result" && probe.Subtype == "success"
}
