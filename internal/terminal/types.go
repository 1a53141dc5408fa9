// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package terminal is the Terminal-pane adapter: the boundary between the
// action dispatcher and whatever multiplexer actually hosts a provider
// CLI's interactive pane. The only backend shipped is tmux.
package terminal

import "context"

// PaneRef identifies one multiplexer pane.
type PaneRef struct {
	Session string
	Window  string
	Tty     string
}

// Target returns the tmux-style "session:window" addressing string.
func (p PaneRef) Target() string {
	return p.Session + ":" + p.Window
}

// WindowInfo describes one window within a session.
type WindowInfo struct {
	Index  int
	Name   string
	Active bool
}

// Executor is the low-level tmux command surface. Kept separate from
// Adapter so the higher-level pane contract can be tested against a fake.
type Executor interface {
	HasSession(ctx context.Context, session string) bool
	NewSession(ctx context.Context, session, workdir, firstWindowName string) error
	NewWindow(ctx context.Context, session, window, workdir string, command []string) error
	ListWindows(ctx context.Context, session string) ([]WindowInfo, error)
	ListPaneTtys(ctx context.Context) (map[string]PaneRef, error)
	SendKeys(ctx context.Context, target, keys string, literal bool) error
	SendText(ctx context.Context, target, text string) error
	IsInstalled() bool
}

// Adapter is the contract the action dispatcher consumes (spec §4.14).
type Adapter interface {
	// IsInstalled reports whether the backend multiplexer is available.
	IsInstalled() bool

	// FindPaneByTty locates the pane currently attached to tty, if any.
	FindPaneByTty(ctx context.Context, tty string) (PaneRef, bool)

	// EnsureDefaultSession creates the daemon's default session if it
	// doesn't already exist, and returns its name.
	EnsureDefaultSession(ctx context.Context) (string, error)

	// CreateWindow creates a new window running command in cwd, attached
	// to the default session, and returns its pane reference. name may be
	// empty, in which case a name is generated.
	CreateWindow(ctx context.Context, name, cwd string, command []string) (PaneRef, error)

	// SendText sends text literally to the pane, serialized per pane, and
	// optionally follows it with Enter.
	SendText(ctx context.Context, pane PaneRef, text string, pressEnter bool) error

	// SendKey sends a named key (e.g. "Enter", "Escape", "C-c") to the
	// pane, serialized per pane.
	SendKey(ctx context.Context, pane PaneRef, keyName string) error
}
