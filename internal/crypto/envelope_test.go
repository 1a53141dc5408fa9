// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := testKey(t)
	env, err := Seal(key, []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.V)

	plaintext, err := Open(key, env)
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"world"}`, string(plaintext))
}

func TestOpen_WrongKeyFails(t *testing.T) {
	env, err := Seal(testKey(t), []byte("secret"))
	require.NoError(t, err)

	_, err = Open(testKey(t), env)
	assert.Error(t, err)
}

func TestOpen_UnsupportedVersionFails(t *testing.T) {
	env, err := Seal(testKey(t), []byte("secret"))
	require.NoError(t, err)
	env.V = 2

	_, err = Open(testKey(t), env)
	assert.Error(t, err)
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	key := testKey(t)
	env, err := Seal(key, []byte("secret"))
	require.NoError(t, err)
	env.Ciphertext = env.Ciphertext[:len(env.Ciphertext)-2] + "AA"

	_, err = Open(key, env)
	assert.Error(t, err)
}

func TestLooksLikeEnvelope(t *testing.T) {
	env, err := Seal(testKey(t), []byte("x"))
	require.NoError(t, err)

	assert.True(t, LooksLikeEnvelope([]byte(
		`{"v":`+strconv.Itoa(env.V)+`,"nonce":"`+env.Nonce+`","ciphertext":"`+env.Ciphertext+`"}`)))
	assert.False(t, LooksLikeEnvelope([]byte(`{"action":"sendPrompt","sessionId":"s1"}`)))
	assert.False(t, LooksLikeEnvelope([]byte(`not json`)))
}
