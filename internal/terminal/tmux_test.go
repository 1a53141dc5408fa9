// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWindowList(t *testing.T) {
	output := "0: main\n1: claude-work*\n"
	windows := parseWindowList(output)
	assert.Len(t, windows, 2)
	assert.Equal(t, WindowInfo{Index: 0, Name: "main", Active: false}, windows[0])
	assert.Equal(t, WindowInfo{Index: 1, Name: "claude-work", Active: true}, windows[1])
}

func TestParseWindowList_Empty(t *testing.T) {
	assert.Empty(t, parseWindowList(""))
}

func TestFilterTMUXEnv(t *testing.T) {
	env := []string{"TMUX=/tmp/tmux-0/default,123,0", "HOME=/root", "TMUX_PANE=%1"}
	filtered := filterTMUXEnv(env)
	assert.Equal(t, []string{"HOME=/root", "TMUX_PANE=%1"}, filtered)
}
