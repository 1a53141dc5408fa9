// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package pairing

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/crypto"
	"github.com/shaneholloman/arc0d/internal/model"
)

func modelClientFixture() model.Client {
	return model.Client{
		DeviceID:      "existing-device",
		DeviceName:    "Already Paired",
		AuthTokenHash: crypto.HashAuthToken([]byte("tok")),
		EncryptionKey: "base64-key",
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *clients.Registry) {
	t.Helper()
	reg, err := clients.Load(filepath.Join(t.TempDir(), "clients.json"))
	require.NoError(t, err)
	return New(reg, "ws-1", "My Mac", 100*time.Millisecond), reg
}

func TestCoordinator_FullHandshakeSucceeds(t *testing.T) {
	c, reg := newTestCoordinator(t)

	start, err := c.Start()
	require.NoError(t, err)
	assert.Equal(t, StateAdvertising, c.CurrentState())

	client, err := crypto.NewClient(start.Code)
	require.NoError(t, err)

	challenge, err := c.HandlePairInit("d1", "Phone", client.Message())
	require.NoError(t, err)
	assert.Equal(t, StateChallenged, c.CurrentState())

	clientKey, err := client.Finish(challenge)
	require.NoError(t, err)

	result, err := c.HandlePairConfirm(clientKey.ClientConfirm())
	require.NoError(t, err)
	assert.True(t, clientKey.VerifyServerConfirm(result.ServerMAC))
	assert.Equal(t, "ws-1", result.WorkstationID)
	assert.Len(t, result.AuthToken, 32)
	assert.Len(t, result.EncryptionKey, 32)

	assert.Equal(t, StateIdle, c.CurrentState())

	got, ok := reg.Get("d1")
	require.True(t, ok)
	assert.True(t, reg.Validate(got.DeviceID, result.AuthToken))

	// Completed latches true exactly once.
	status := c.Status()
	assert.False(t, status.Active)
	assert.True(t, status.Completed)
	assert.Equal(t, "d1", status.DeviceID)

	status = c.Status()
	assert.False(t, status.Completed)
}

func TestCoordinator_WrongCodeFailsConfirm(t *testing.T) {
	c, _ := newTestCoordinator(t)
	_, err := c.Start()
	require.NoError(t, err)

	client, err := crypto.NewClient("completely-wrong-code")
	require.NoError(t, err)
	challenge, err := c.HandlePairInit("d1", "Phone", client.Message())
	require.NoError(t, err)

	clientKey, err := client.Finish(challenge)
	require.NoError(t, err)

	_, err = c.HandlePairConfirm(clientKey.ClientConfirm())
	require.Error(t, err)
	assert.Equal(t, "MAC_MISMATCH", err.(*Error).Code)

	// Code remains valid: state reverts to Advertising, not Idle.
	assert.Equal(t, StateAdvertising, c.CurrentState())
}

func TestCoordinator_TimeoutNotifiesAndResets(t *testing.T) {
	c, _ := newTestCoordinator(t)

	notified := make(chan string, 1)
	c.OnError(func(code string) { notified <- code })

	_, err := c.Start()
	require.NoError(t, err)

	select {
	case code := <-notified:
		assert.Equal(t, "TIMEOUT", code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for TIMEOUT notification")
	}
	assert.Equal(t, StateIdle, c.CurrentState())
}

func TestCoordinator_CancelResetsAndNotifies(t *testing.T) {
	c, _ := newTestCoordinator(t)
	var got string
	c.OnError(func(code string) { got = code })

	_, err := c.Start()
	require.NoError(t, err)

	c.Cancel()
	assert.Equal(t, "TIMEOUT", got)
	assert.Equal(t, StateIdle, c.CurrentState())

	// Canceling when idle doesn't notify again.
	got = ""
	c.Cancel()
	assert.Empty(t, got)
}

func TestCoordinator_DisabledRejectsStart(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.SetEnabled(false)

	_, err := c.Start()
	require.Error(t, err)
	assert.Equal(t, "PAIRING_DISABLED", err.(*Error).Code)
}

func TestCoordinator_AlreadyPairedDeviceRejected(t *testing.T) {
	c, reg := newTestCoordinator(t)
	require.NoError(t, reg.Add(modelClientFixture()))

	_, err := c.Start()
	require.NoError(t, err)

	client, err := crypto.NewClient("irrelevant")
	require.NoError(t, err)
	_, err = c.HandlePairInit("existing-device", "Phone", client.Message())
	require.Error(t, err)
	assert.Equal(t, "ALREADY_PAIRED", err.(*Error).Code)
}
