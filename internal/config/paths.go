// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
)

// Paths resolves the on-disk locations of every persisted file under a
// per-mode base directory (".arc0", ".arc0-dev", ".arc0-test", ...).
type Paths struct {
	Base string
}

// NewPaths returns Paths rooted at ~/.arc0, or ~/.arc0-<mode> when mode is
// non-empty.
func NewPaths(mode string) (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, err
	}
	dir := ".arc0"
	if mode != "" {
		dir = ".arc0-" + mode
	}
	return Paths{Base: filepath.Join(home, dir)}, nil
}

func (p Paths) ConfigFile() string      { return filepath.Join(p.Base, "config.json") }
func (p Paths) CredentialsFile() string { return filepath.Join(p.Base, ".credentials.json") }
func (p Paths) ClientsFile() string     { return filepath.Join(p.Base, "clients.json") }
func (p Paths) StateFile() string       { return filepath.Join(p.Base, "daemon.state.json") }
func (p Paths) LockFile() string        { return filepath.Join(p.Base, "daemon.lock") }
func (p Paths) SessionsDir() string     { return filepath.Join(p.Base, "sessions") }

// SessionEventsFile returns the transcript path for one session.
func (p Paths) SessionEventsFile(sessionID string) string {
	return filepath.Join(p.SessionsDir(), sessionID+".events.jsonl")
}

// EnsureBase creates the base directory (and its sessions subdirectory) if
// missing.
func (p Paths) EnsureBase() error {
	if err := os.MkdirAll(p.SessionsDir(), 0o700); err != nil {
		return err
	}
	return nil
}
