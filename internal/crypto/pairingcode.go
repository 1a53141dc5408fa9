// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// pairingAlphabet excludes visually ambiguous characters (I, O, 0, 1). Its
// length is a power of two so sampling a random byte mod len introduces no
// bias.
const pairingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// pairingCodeLength in characters; at 32 symbols per character this is 40
// bits of entropy.
const pairingCodeLength = 8

// GeneratePairingCode returns a fresh random pairing code, e.g. "ABCD2345".
// Use FormatPairingCode to render it for display.
func GeneratePairingCode() (string, error) {
	raw := make([]byte, pairingCodeLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("crypto: read pairing code entropy: %w", err)
	}

	code := make([]byte, pairingCodeLength)
	for i, b := range raw {
		code[i] = pairingAlphabet[int(b)%len(pairingAlphabet)]
	}
	return string(code), nil
}

// FormatPairingCode renders an 8-character code for display as "XXXX-XXXX".
func FormatPairingCode(code string) string {
	if len(code) != pairingCodeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}

// ParsePairingCode normalizes user-entered input (stripping dashes and
// whitespace, uppercasing) and validates it against the pairing alphabet.
// It returns the canonical unformatted code.
func ParsePairingCode(input string) (string, error) {
	cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' || r == '\n' {
			return -1
		}
		return r
	}, input))

	if len(cleaned) != pairingCodeLength {
		return "", fmt.Errorf("crypto: pairing code must be %d characters", pairingCodeLength)
	}
	for _, r := range cleaned {
		if !strings.ContainsRune(pairingAlphabet, r) {
			return "", fmt.Errorf("crypto: invalid pairing code character %q", r)
		}
	}
	return cleaned, nil
}
