// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/lifecycle"
)

func writeTestConfig(t *testing.T, home, mode string) string {
	t.Helper()
	base := filepath.Join(home, ".arc0-"+mode)
	require.NoError(t, os.MkdirAll(base, 0o700))
	path := filepath.Join(base, "config.json")
	body := fmt.Sprintf(`{
		"version": 1,
		"workstationId": "ws-test-%s",
		"enabledProviders": {"claude": false, "codex": false, "gemini": false},
		"watchPaths": []
	}`, mode)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApp_RunThroughShutdown(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeTestConfig(t, home, "test1")

	app, err := New(Options{Mode: "test1", Host: "127.0.0.1"})
	require.NoError(t, err)
	require.NoError(t, app.Initialize(context.Background()))
	require.NoError(t, app.Start(context.Background()))

	require.NotNil(t, app.controlLn)
	require.NotNil(t, app.dataLn)
	require.NotZero(t, lifecycle.Port(app.controlLn))
	require.NotZero(t, lifecycle.Port(app.dataLn))

	state, err := lifecycle.ReadStateFile(app.paths.StateFile())
	require.NoError(t, err)
	require.Equal(t, lifecycle.Port(app.controlLn), state.ControlPort)
	require.Equal(t, lifecycle.Port(app.dataLn), state.DataPort)

	require.Empty(t, app.connectedSockets())
	require.NoError(t, app.stopTunnel())

	require.NoError(t, app.Shutdown(context.Background()))

	_, err = os.Stat(app.paths.StateFile())
	require.True(t, os.IsNotExist(err))
}

func TestApp_AcquireLockFailsWhenAlreadyRunning(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeTestConfig(t, home, "test2")

	first, err := New(Options{Mode: "test2"})
	require.NoError(t, err)
	require.NoError(t, first.Initialize(context.Background()))
	defer first.lock.Release()

	second, err := New(Options{Mode: "test2"})
	require.NoError(t, err)
	err = second.Initialize(context.Background())
	require.Error(t, err)
}

func TestApp_StopUnblocksRun(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeTestConfig(t, home, "test3")

	app, err := New(Options{Mode: "test3"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- app.Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		app.mu.RLock()
		defer app.mu.RUnlock()
		return app.controlLn != nil
	}, 2*time.Second, 10*time.Millisecond)

	app.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
