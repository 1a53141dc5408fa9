// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpake2_MatchingPasswordAgreesAndConfirms(t *testing.T) {
	client, err := NewClient("correct-horse")
	require.NoError(t, err)
	server, err := NewServer("correct-horse")
	require.NoError(t, err)

	clientKey, err := client.Finish(server.Message())
	require.NoError(t, err)
	serverKey, err := server.Finish(client.Message())
	require.NoError(t, err)

	assert.Equal(t, clientKey, serverKey)
	assert.True(t, serverKey.VerifyClientConfirm(clientKey.ClientConfirm()))
	assert.True(t, clientKey.VerifyServerConfirm(serverKey.ServerConfirm()))
}

func TestSpake2_MismatchedPasswordDisagrees(t *testing.T) {
	client, err := NewClient("correct-horse")
	require.NoError(t, err)
	server, err := NewServer("wrong-password")
	require.NoError(t, err)

	clientKey, err := client.Finish(server.Message())
	require.NoError(t, err)
	serverKey, err := server.Finish(client.Message())
	require.NoError(t, err)

	assert.NotEqual(t, clientKey, serverKey)
	assert.False(t, serverKey.VerifyClientConfirm(clientKey.ClientConfirm()))
}

func TestSpake2_TamperedMessageFailsToParse(t *testing.T) {
	server, err := NewServer("correct-horse")
	require.NoError(t, err)

	_, err = server.Finish([]byte("not a valid curve point"))
	assert.Error(t, err)
}

func TestSpake2_EachExchangeUsesFreshEphemeral(t *testing.T) {
	a, err := NewClient("correct-horse")
	require.NoError(t, err)
	b, err := NewClient("correct-horse")
	require.NoError(t, err)

	assert.NotEqual(t, a.Message(), b.Message())
}
