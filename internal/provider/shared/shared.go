// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package shared holds scanning helpers common to the per-provider session
// discovery strategies (internal/provider/claude, codex, gemini).
package shared

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/shaneholloman/arc0d/internal/model"
)

// marker is the on-disk liveness-marker shape written alongside a
// provider's transcript, per spec.md §4.3.
type marker struct {
	SessionID      string `json:"sessionId"`
	Cwd            string `json:"cwd"`
	Provider       string `json:"provider"`
	Tty            string `json:"tty"`
	StartedAt      string `json:"startedAt"`
	TranscriptPath string `json:"transcriptPath"`
}

// ScanLivenessMarkers globs markerGlob for liveness-marker files and
// decodes each into a model.Session. A marker missing or malformed is
// skipped rather than failing the whole scan, matching the transcript
// watcher's tolerance of partial/bad data (§4.2).
func ScanLivenessMarkers(markerGlob string, provider model.Provider) ([]model.Session, error) {
	matches, err := filepath.Glob(markerGlob)
	if err != nil {
		return nil, err
	}

	var out []model.Session
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var m marker
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if m.SessionID == "" {
			continue
		}

		startedAt := time.Time{}
		if m.StartedAt != "" {
			if t, err := time.Parse(time.RFC3339, m.StartedAt); err == nil {
				startedAt = t
			}
		}

		out = append(out, model.Session{
			SessionID:      m.SessionID,
			Provider:       provider,
			Cwd:            m.Cwd,
			StartedAt:      startedAt,
			TranscriptPath: m.TranscriptPath,
			Tty:            m.Tty,
		})
	}
	return out, nil
}

// ExpandHome resolves a leading "~" against the current user's home
// directory, mirroring the config loader's {{.Home}} template expansion
// for strategies constructed with a default (un-configured) root.
func ExpandHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || path == "" || path[0] != '~' {
		return path
	}
	return filepath.Join(home, path[1:])
}
