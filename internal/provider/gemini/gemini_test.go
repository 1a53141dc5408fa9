// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaneholloman/arc0d/internal/model"
)

func TestStrategy_Provider(t *testing.T) {
	s := New("/tmp/gemini-tmp")
	assert.Equal(t, model.ProviderGemini, s.Provider())
	assert.Equal(t, []string{"/tmp/gemini-tmp"}, s.WatchRoots())
}

func TestTerminatorSeen(t *testing.T) {
	assert.True(t, TerminatorSeen([]byte(`{"type":"turn_complete"}`)))
	assert.False(t, TerminatorSeen([]byte(`{"type":"message"}`)))
	assert.False(t, TerminatorSeen([]byte(`not json`)))
}
