// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package crypto implements the pairing and transport cryptography: a
// SPAKE2 password-authenticated key exchange on Ed25519, AEAD message
// envelopes, pairing-code encoding, and auth-token hashing.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	spake2MSeed            = "arc0-spake2-M-v1"
	spake2NSeed            = "arc0-spake2-N-v1"
	spake2PasswordPrefix   = "arc0-spake2-pw:"
	spake2TranscriptPrefix = "arc0-spake2-v1"

	clientConfirmLabel = "client-confirm"
	serverConfirmLabel = "server-confirm"
)

// spake2M and spake2N are the two nothing-up-my-sleeve generators the
// exchange masks its ephemeral points with. Each is h(seed)·G, where
// h is SHA-256 reduced mod the curve order.
var (
	spake2M = derivePoint(spake2MSeed)
	spake2N = derivePoint(spake2NSeed)
)

func derivePoint(seed string) *edwards25519.Point {
	s := scalarFromHash(sha256.Sum256([]byte(seed)))
	return new(edwards25519.Point).ScalarBaseMult(s)
}

// scalarFromHash reduces a 32-byte digest mod the curve order. Scalar's
// wide-reduction constructor takes 64 bytes, so the digest is zero-extended
// into the high half before reduction.
func scalarFromHash(h [32]byte) *edwards25519.Scalar {
	var wide [64]byte
	copy(wide[:32], h[:])
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		// SetUniformBytes only rejects wrong-length input; wide is always 64.
		panic("crypto: scalar reduction failed: " + err.Error())
	}
	return s
}

func randomScalar() (*edwards25519.Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("crypto: read random scalar: %w", err)
	}
	return edwards25519.NewScalar().SetUniformBytes(buf[:])
}

func passwordScalar(password string) *edwards25519.Scalar {
	return scalarFromHash(sha256.Sum256([]byte(spake2PasswordPrefix + password)))
}

type role int

const (
	roleClient role = iota
	roleServer
)

// Spake2 holds one side of an in-progress SPAKE2 exchange.
type Spake2 struct {
	role     role
	password *edwards25519.Scalar
	secret   *edwards25519.Scalar
	message  *edwards25519.Point
}

// NewClient starts the client side of a SPAKE2 exchange bound to password.
func NewClient(password string) (*Spake2, error) {
	return newSpake2(roleClient, password, spake2M)
}

// NewServer starts the server side of a SPAKE2 exchange bound to password.
func NewServer(password string) (*Spake2, error) {
	return newSpake2(roleServer, password, spake2N)
}

func newSpake2(r role, password string, mask *edwards25519.Point) (*Spake2, error) {
	secret, err := randomScalar()
	if err != nil {
		return nil, err
	}
	pw := passwordScalar(password)
	msg := new(edwards25519.Point).Add(
		new(edwards25519.Point).ScalarBaseMult(secret),
		new(edwards25519.Point).ScalarMult(pw, mask),
	)
	return &Spake2{role: r, password: pw, secret: secret, message: msg}, nil
}

// Message returns this side's outgoing SPAKE2 message (X for the client,
// Y for the server) to send to the peer.
func (s *Spake2) Message() []byte {
	return s.message.Bytes()
}

// SharedKey is the 32-byte secret both sides derive once the exchange
// transcript has been hashed. It is not yet confirmed: callers must verify
// the peer's confirmation MAC before trusting it.
type SharedKey [32]byte

// Finish consumes the peer's SPAKE2 message and derives the shared key.
// It does not itself verify anything; callers exchange and check
// ClientConfirm/ServerConfirm MACs to confirm both sides agree.
func (s *Spake2) Finish(peerMessage []byte) (SharedKey, error) {
	peerPoint, err := new(edwards25519.Point).SetBytes(peerMessage)
	if err != nil {
		return SharedKey{}, fmt.Errorf("crypto: invalid peer spake2 message: %w", err)
	}

	peerMask := spake2N
	if s.role == roleServer {
		peerMask = spake2M
	}
	masked := new(edwards25519.Point).ScalarMult(s.password, peerMask)
	diff := new(edwards25519.Point).Subtract(peerPoint, masked)
	z := new(edwards25519.Point).ScalarMult(s.secret, diff)

	var clientBytes, serverBytes []byte
	if s.role == roleClient {
		clientBytes, serverBytes = s.message.Bytes(), peerMessage
	} else {
		clientBytes, serverBytes = peerMessage, s.message.Bytes()
	}

	h := sha256.New()
	h.Write([]byte(spake2TranscriptPrefix))
	h.Write(clientBytes)
	h.Write(serverBytes)
	h.Write(z.Bytes())

	var key SharedKey
	copy(key[:], h.Sum(nil))
	return key, nil
}

// ClientConfirm computes the client's confirmation MAC over K.
func (k SharedKey) ClientConfirm() []byte {
	return confirmMAC(k, clientConfirmLabel)
}

// ServerConfirm computes the server's confirmation MAC over K.
func (k SharedKey) ServerConfirm() []byte {
	return confirmMAC(k, serverConfirmLabel)
}

func confirmMAC(k SharedKey, label string) []byte {
	mac := hmac.New(sha256.New, k[:])
	mac.Write([]byte(label))
	return mac.Sum(nil)
}

// VerifyClientConfirm constant-time checks a purported client confirmation
// MAC against K.
func (k SharedKey) VerifyClientConfirm(mac []byte) bool {
	return constantTimeEqual(k.ClientConfirm(), mac)
}

// VerifyServerConfirm constant-time checks a purported server confirmation
// MAC against K.
func (k SharedKey) VerifyServerConfirm(mac []byte) bool {
	return constantTimeEqual(k.ServerConfirm(), mac)
}
