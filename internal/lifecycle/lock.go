// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle implements the daemon's single-instance lock, state
// file, and port-preference persistence, and the startup/shutdown
// sequencing the composition root drives them with (spec §4.12).
package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned by AcquireLock when another live daemon
// already holds the lock.
var ErrAlreadyRunning = fmt.Errorf("arc0d is already running")

// Lock is the single-instance guard: an advisory file lock on
// <runtimeDir>/daemon.lock.
type Lock struct {
	flock *flock.Flock
	path  string
}

// AcquireLock tries to take the single-instance lock at lockPath. If the
// lock is held but the PID recorded in stateJSON (if any) belongs to a
// dead process, it removes the stale lock file and retries once — the OS
// advisory lock itself is released automatically when its owning process
// dies, so this only matters for a lock file abandoned in a state the OS
// didn't clean up (spec §4.21 / §5).
func AcquireLock(lockPath, stateJSONPath string) (*Lock, error) {
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lifecycle: acquire lock: %w", err)
	}
	if locked {
		return &Lock{flock: fl, path: lockPath}, nil
	}

	if pid, ok := statePID(stateJSONPath); ok && !pidAlive(pid) {
		_ = os.Remove(lockPath)
		fl = flock.New(lockPath)
		locked, err = fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("lifecycle: acquire lock after stale recovery: %w", err)
		}
		if locked {
			return &Lock{flock: fl, path: lockPath}, nil
		}
	}

	return nil, ErrAlreadyRunning
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("lifecycle: release lock: %w", err)
	}
	_ = os.Remove(l.path)
	return nil
}

// statePID reads the PID recorded in a daemon.state.json file, if it
// exists and parses.
func statePID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, false
	}
	return s.PID, s.PID > 0
}

// pidAlive reports whether pid refers to a live process, using the
// signal-0 liveness probe (sends no signal, only checks permission and
// existence).
func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
