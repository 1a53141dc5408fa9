// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindPreferred_UsesOSAssignedPortWhenNoneRequested(t *testing.T) {
	ln, err := BindPreferred("127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotZero(t, Port(ln))
}

func TestBindPreferred_FallsBackOnAddrInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()
	takenPort := Port(taken)

	ln, err := BindPreferred("127.0.0.1", takenPort)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotEqual(t, takenPort, Port(ln))
}

func TestBindPreferred_UsesPreferredPortWhenFree(t *testing.T) {
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	free := Port(probe)
	require.NoError(t, probe.Close())

	ln, err := BindPreferred("127.0.0.1", free)
	require.NoError(t, err)
	defer ln.Close()

	assert.Equal(t, free, Port(ln))
}
