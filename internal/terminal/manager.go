// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultSessionName is the single tmux session arc0d creates all provider
// panes under.
const DefaultSessionName = "arc0"

// enterDelay is the pause between writing text and sending Enter, giving
// the target CLI's input handling time to settle (mirrors a human paste
// followed by a keypress).
const enterDelay = 30 * time.Millisecond

// TmuxAdapter implements Adapter over an Executor.
type TmuxAdapter struct {
	exec Executor

	mu        sync.Mutex
	windowSeq int

	paneLocks sync.Map // target string -> *sync.Mutex
}

// NewTmuxAdapter creates a tmux-backed Adapter.
func NewTmuxAdapter(exec Executor) *TmuxAdapter {
	return &TmuxAdapter{exec: exec}
}

// IsInstalled implements Adapter.
func (a *TmuxAdapter) IsInstalled() bool {
	return a.exec.IsInstalled()
}

// FindPaneByTty implements Adapter.
func (a *TmuxAdapter) FindPaneByTty(ctx context.Context, tty string) (PaneRef, bool) {
	panes, err := a.exec.ListPaneTtys(ctx)
	if err != nil {
		return PaneRef{}, false
	}
	pane, ok := panes[tty]
	return pane, ok
}

// EnsureDefaultSession implements Adapter.
func (a *TmuxAdapter) EnsureDefaultSession(ctx context.Context) (string, error) {
	if !a.exec.HasSession(ctx, DefaultSessionName) {
		if err := a.exec.NewSession(ctx, DefaultSessionName, "", "main"); err != nil {
			return "", fmt.Errorf("terminal: create default session: %w", err)
		}
	}
	return DefaultSessionName, nil
}

// CreateWindow implements Adapter.
func (a *TmuxAdapter) CreateWindow(ctx context.Context, name, cwd string, command []string) (PaneRef, error) {
	session, err := a.EnsureDefaultSession(ctx)
	if err != nil {
		return PaneRef{}, err
	}

	if name == "" {
		name = a.nextWindowName()
	}

	if err := a.exec.NewWindow(ctx, session, name, cwd, command); err != nil {
		return PaneRef{}, fmt.Errorf("terminal: create window: %w", err)
	}

	return a.resolvePane(ctx, session, name)
}

// resolvePane maps a freshly-created (session, windowName) pair to its
// PaneRef, including the pane's tty.
func (a *TmuxAdapter) resolvePane(ctx context.Context, session, name string) (PaneRef, error) {
	windows, err := a.exec.ListWindows(ctx, session)
	if err != nil {
		return PaneRef{}, fmt.Errorf("terminal: list windows: %w", err)
	}
	index := -1
	for _, w := range windows {
		if w.Name == name {
			index = w.Index
			break
		}
	}
	if index == -1 {
		return PaneRef{}, fmt.Errorf("terminal: window %q not found after creation", name)
	}
	windowRef := fmt.Sprintf("%d", index)

	panes, err := a.exec.ListPaneTtys(ctx)
	if err != nil {
		return PaneRef{}, fmt.Errorf("terminal: list panes: %w", err)
	}
	for _, p := range panes {
		if p.Session == session && p.Window == windowRef {
			return p, nil
		}
	}
	return PaneRef{Session: session, Window: windowRef}, nil
}

// SendText implements Adapter. Serialized per pane so two concurrent
// sendPrompt actions on the same pane never interleave their text+Enter
// pairs (spec §4.10, §5).
func (a *TmuxAdapter) SendText(ctx context.Context, pane PaneRef, text string, pressEnter bool) error {
	lock := a.lockFor(pane)
	lock.Lock()
	defer lock.Unlock()

	if err := a.exec.SendText(ctx, pane.Target(), text); err != nil {
		return fmt.Errorf("terminal: send text: %w", err)
	}
	if pressEnter {
		time.Sleep(enterDelay)
		if err := a.exec.SendKeys(ctx, pane.Target(), "Enter", false); err != nil {
			return fmt.Errorf("terminal: send enter: %w", err)
		}
	}
	return nil
}

// SendKey implements Adapter.
func (a *TmuxAdapter) SendKey(ctx context.Context, pane PaneRef, keyName string) error {
	lock := a.lockFor(pane)
	lock.Lock()
	defer lock.Unlock()

	if err := a.exec.SendKeys(ctx, pane.Target(), keyName, false); err != nil {
		return fmt.Errorf("terminal: send key %q: %w", keyName, err)
	}
	return nil
}

func (a *TmuxAdapter) lockFor(pane PaneRef) *sync.Mutex {
	actual, _ := a.paneLocks.LoadOrStore(pane.Target(), &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (a *TmuxAdapter) nextWindowName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.windowSeq++
	return fmt.Sprintf("arc0-%d", a.windowSeq)
}
