// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashAuthToken returns the hex-encoded SHA-256 of token, the form the
// client registry persists instead of the token itself.
func HashAuthToken(token []byte) string {
	sum := sha256.Sum256(token)
	return hex.EncodeToString(sum[:])
}

// ValidateAuthToken constant-time compares token's hash against a stored
// hex-encoded hash.
func ValidateAuthToken(token []byte, storedHash string) bool {
	return constantTimeEqual([]byte(HashAuthToken(token)), []byte(storedHash))
}

// constantTimeEqual reports whether a and b are equal without leaking
// timing information about where they first differ.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
