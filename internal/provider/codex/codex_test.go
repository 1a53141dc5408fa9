// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package codex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaneholloman/arc0d/internal/model"
)

func TestStrategy_Provider(t *testing.T) {
	s := New("/tmp/codex-sessions")
	assert.Equal(t, model.ProviderCodex, s.Provider())
	assert.Equal(t, []string{"/tmp/codex-sessions"}, s.WatchRoots())
}

func TestTerminatorSeen(t *testing.T) {
	assert.True(t, TerminatorSeen([]byte(`{"type":"task_complete"}`)))
	assert.False(t, TerminatorSeen([]byte(`{"type":"message"}`)))
	assert.False(t, TerminatorSeen([]byte(`not json`)))
}
