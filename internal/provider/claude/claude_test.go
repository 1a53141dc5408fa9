// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package claude

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/model"
)

func TestStrategy_Scan(t *testing.T) {
	dir := t.TempDir()
	proj := filepath.Join(dir, "proj1")
	require.NoError(t, os.MkdirAll(proj, 0o755))
	marker := `{"sessionId":"s1","cwd":"/tmp/proj1","provider":"claude","startedAt":"2026-01-01T00:00:00Z","transcriptPath":"/tmp/proj1/s1.jsonl"}`
	require.NoError(t, os.WriteFile(filepath.Join(proj, "s1.sessions.json"), []byte(marker), 0o644))

	s := New(dir)
	assert.Equal(t, model.ProviderClaude, s.Provider())
	assert.Equal(t, []string{dir}, s.WatchRoots())

	sessions, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
}

func TestTerminatorSeen(t *testing.T) {
	assert.True(t, TerminatorSeen([]byte(`{"type":"result","subtype":"success"}`)))
	assert.False(t, TerminatorSeen([]byte(`{"type":"summary"}`)))
	assert.False(t, TerminatorSeen([]byte(`{"type":"result","subtype":"error"}`)))
	assert.False(t, TerminatorSeen([]byte(`not json`)))
}

func TestNew_DefaultRoot(t *testing.T) {
	s := New("")
	assert.NotEmpty(t, s.root)
}
