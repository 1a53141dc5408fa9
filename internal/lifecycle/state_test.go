// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.state.json")
	want := NewState(9001, 9002, time.Now().UTC().Truncate(time.Second))

	require.NoError(t, WriteStateFile(path, want))

	got, err := ReadStateFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"socketPort"`, "dataPort is named socketPort on the wire per spec")
	assert.NotContains(t, string(raw), `"dataPort"`)
}

func TestRemoveStateFile_MissingIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	assert.NoError(t, RemoveStateFile(path))
}

func TestPortPreferences_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ports.json")
	want := PortPreferences{ControlPort: 7001, DataPort: 7002}

	require.NoError(t, SavePortPreferences(path, want))

	got, err := LoadPortPreferences(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPortPreferences_MissingFileYieldsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	got, err := LoadPortPreferences(path)
	require.NoError(t, err)
	assert.Equal(t, PortPreferences{}, got)
}
