// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// EnvelopeVersion is the only envelope format arc0d currently speaks.
const EnvelopeVersion = 1

// Envelope is the wire shape of an encrypted payload: a fresh random nonce
// and a ciphertext that includes its own 16-byte Poly1305 tag.
type Envelope struct {
	V          int    `json:"v"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Seal encrypts plaintext under key (must be 32 bytes) with a fresh random
// 24-byte nonce, returning the envelope to send on the wire.
func Seal(key, plaintext []byte) (*Envelope, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: read nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return &Envelope{
		V:          EnvelopeVersion,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Open decrypts env under key, returning an error if the version is
// unrecognized, the encoding is malformed, or authentication fails.
func Open(key []byte, env *Envelope) ([]byte, error) {
	if env.V != EnvelopeVersion {
		return nil, fmt.Errorf("crypto: unsupported envelope version %d", env.V)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("crypto: invalid nonce length %d", len(nonce))
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt: %w", err)
	}
	return plaintext, nil
}

// LooksLikeEnvelope reports whether raw decodes as an envelope shape
// ({v, nonce, ciphertext} all present), letting callers runtime-detect
// plain-JSON vs. AEAD-wrapped inbound action payloads.
func LooksLikeEnvelope(raw []byte) bool {
	var probe struct {
		V          *int    `json:"v"`
		Nonce      *string `json:"nonce"`
		Ciphertext *string `json:"ciphertext"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.V != nil && probe.Nonce != nil && probe.Ciphertext != nil
}
