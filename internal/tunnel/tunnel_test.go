// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package tunnel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_StartExitsCleanly(t *testing.T) {
	sup := New(Config{Command: []string{"echo", "hello"}}, 9000)

	err := sup.Start(context.Background())
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	status := sup.GetStatus()
	assert.Equal(t, StateStopped, status.State)
	assert.Equal(t, 0, status.ExitCode)
}

func TestSupervisor_StartAlreadyRunning(t *testing.T) {
	sup := New(Config{Command: []string{"sleep", "10"}}, 9000)
	defer sup.Stop()

	require.NoError(t, sup.Start(context.Background()))

	err := sup.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestSupervisor_Stop(t *testing.T) {
	sup := New(Config{Command: []string{"sleep", "60"}}, 9000)

	require.NoError(t, sup.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, sup.Stop())

	status := sup.GetStatus()
	assert.Equal(t, StateStopped, status.State)
}

func TestSupervisor_PortSubstitution(t *testing.T) {
	sup := New(Config{Command: []string{"echo", "-p", "%d"}}, 7777)
	assert.Equal(t, []string{"echo", "-p", "7777"}, sup.cfg.Command)
}

func TestSupervisor_EmptyCommandFails(t *testing.T) {
	sup := New(Config{}, 9000)
	err := sup.Start(context.Background())
	assert.Error(t, err)
}

func TestSupervisor_CrashedExitCodeRecorded(t *testing.T) {
	sup := New(Config{Command: []string{"sh", "-c", "exit 3"}}, 9000)

	require.NoError(t, sup.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)

	status := sup.GetStatus()
	assert.Equal(t, StateCrashed, status.State)
	assert.Equal(t, 3, status.ExitCode)
}
