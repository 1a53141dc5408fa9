// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher tails provider session transcripts and emits freshly
// appended lines onto the event bus. It tolerates watching a path whose
// parent directory does not exist yet, which providers routinely create
// only after a session has already started.
package watcher

import "github.com/shaneholloman/arc0d/internal/model"

// TranscriptWatcher watches a dynamic set of (sessionID -> transcriptPath)
// pairs and caches their parsed lines.
type TranscriptWatcher interface {
	// WatchSession begins watching path for sessionID. Idempotent: a second
	// call with the same (sessionID, path) is a no-op. Safe to call before
	// path or any of its ancestor directories exist.
	WatchSession(sessionID, path string) error

	// UnwatchSession stops watching sessionID and drops its cached lines
	// and file position.
	UnwatchSession(sessionID string)

	// GetLinesSince returns cached lines for sessionID with a timestamp
	// lexicographically greater than lastTs, in file order.
	GetLinesSince(sessionID, lastTs string) []model.TranscriptLine

	// Close stops all watching and releases underlying resources.
	Close() error
}
