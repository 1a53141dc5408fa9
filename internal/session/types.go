// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session maintains the registry of live coding-agent sessions,
// derived from a pluggable set of per-provider directory-scanning
// strategies.
package session

import (
	"context"

	"github.com/shaneholloman/arc0d/internal/model"
)

// Strategy discovers sessions for one provider (claude, codex, gemini).
type Strategy interface {
	// Provider identifies which coding-agent CLI this strategy scans for.
	Provider() model.Provider

	// WatchRoots returns the directories the registry should watch for
	// filesystem changes that might affect this provider's session set.
	// Entries may not exist yet; the registry tolerates that.
	WatchRoots() []string

	// Scan enumerates this provider's currently-live sessions.
	Scan(ctx context.Context) ([]model.Session, error)
}
