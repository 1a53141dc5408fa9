// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	authTokenInfo     = "arc0-pair-auth-v1"
	encryptionKeyInfo = "arc0-pair-enc-v1"
	derivedKeyLen     = 32
)

// DeriveAuthToken derives the post-pairing auth token from a SPAKE2 shared
// secret via HKDF-SHA-256.
func DeriveAuthToken(k SharedKey) ([]byte, error) {
	return hkdfExpand(k, authTokenInfo)
}

// DeriveEncryptionKey derives the post-pairing transport encryption key
// from a SPAKE2 shared secret via HKDF-SHA-256.
func DeriveEncryptionKey(k SharedKey) ([]byte, error) {
	return hkdfExpand(k, encryptionKeyInfo)
}

func hkdfExpand(k SharedKey, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, k[:], nil, []byte(info))
	out := make([]byte, derivedKeyLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("crypto: hkdf expand %q: %w", info, err)
	}
	return out, nil
}
