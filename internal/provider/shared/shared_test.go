// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/model"
)

func TestScanLivenessMarkers(t *testing.T) {
	dir := t.TempDir()
	proj := filepath.Join(dir, "proj1")
	require.NoError(t, os.MkdirAll(proj, 0o755))

	good := `{"sessionId":"s1","cwd":"/tmp/proj1","provider":"claude","tty":"/dev/ttys001","startedAt":"2026-01-01T00:00:00Z","transcriptPath":"/tmp/proj1/s1.jsonl"}`
	require.NoError(t, os.WriteFile(filepath.Join(proj, "s1.sessions.json"), []byte(good), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(proj, "bad.sessions.json"), []byte("not json"), 0o644))

	sessions, err := ScanLivenessMarkers(filepath.Join(dir, "*", "*.sessions.json"), model.ProviderClaude)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, model.ProviderClaude, sessions[0].Provider)
	assert.Equal(t, "/dev/ttys001", sessions[0].Tty)
}

func TestScanLivenessMarkers_NoMatches(t *testing.T) {
	dir := t.TempDir()
	sessions, err := ScanLivenessMarkers(filepath.Join(dir, "*", "*.sessions.json"), model.ProviderClaude)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".claude", "projects"), ExpandHome("~/.claude/projects"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
}
