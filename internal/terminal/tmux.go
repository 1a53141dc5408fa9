// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// RealExecutor shells out to the tmux binary.
type RealExecutor struct{}

// NewRealExecutor creates a tmux Executor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

// IsInstalled reports whether tmux is on PATH.
func (e *RealExecutor) IsInstalled() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// HasSession checks if a session exists.
func (e *RealExecutor) HasSession(ctx context.Context, session string) bool {
	cmd := exec.CommandContext(ctx, "tmux", "has-session", "-t", session)
	return cmd.Run() == nil
}

// NewSession creates a new tmux session with an optional first window name.
func (e *RealExecutor) NewSession(ctx context.Context, session, workdir, firstWindowName string) error {
	args := []string{"new-session", "-d", "-s", session}
	if firstWindowName != "" {
		args = append(args, "-n", firstWindowName)
	}
	if workdir != "" {
		args = append(args, "-c", workdir)
	}

	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Env = filterTMUXEnv(os.Environ())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tmux new-session failed: %s: %w", stderr.String(), err)
	}
	return nil
}

// NewWindow creates a new window in a session.
func (e *RealExecutor) NewWindow(ctx context.Context, session, window, workdir string, command []string) error {
	args := []string{"new-window", "-t", session, "-n", window}
	if workdir != "" {
		args = append(args, "-c", workdir)
	}
	if len(command) > 0 {
		args = append(args, command...)
	}

	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Env = filterTMUXEnv(os.Environ())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tmux new-window failed: %s: %w", stderr.String(), err)
	}
	return nil
}

// ListWindows lists windows in a session.
func (e *RealExecutor) ListWindows(ctx context.Context, session string) ([]WindowInfo, error) {
	cmd := exec.CommandContext(ctx, "tmux", "list-windows", "-t", session,
		"-F", "#{window_index}: #{window_name}#{?window_active,*,}")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseWindowList(string(output)), nil
}

// ListPaneTtys returns every pane across every session, keyed by tty.
func (e *RealExecutor) ListPaneTtys(ctx context.Context) (map[string]PaneRef, error) {
	cmd := exec.CommandContext(ctx, "tmux", "list-panes", "-a",
		"-F", "#{session_name}\t#{window_index}\t#{pane_tty}")
	output, err := cmd.Output()
	if err != nil {
		if strings.Contains(err.Error(), "no server running") {
			return map[string]PaneRef{}, nil
		}
		return nil, err
	}

	result := make(map[string]PaneRef)
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			continue
		}
		result[parts[2]] = PaneRef{Session: parts[0], Window: parts[1], Tty: parts[2]}
	}
	return result, nil
}

// SendKeys sends keys to a pane.
func (e *RealExecutor) SendKeys(ctx context.Context, target, keys string, literal bool) error {
	args := []string{"send-keys", "-t", target}
	if literal {
		args = append(args, "-l")
	}
	args = append(args, keys)
	cmd := exec.CommandContext(ctx, "tmux", args...)
	return cmd.Run()
}

// SendText sends text via the paste buffer, which tolerates special
// characters that send-keys -l would otherwise mangle.
func (e *RealExecutor) SendText(ctx context.Context, target, text string) error {
	loadCmd := exec.CommandContext(ctx, "tmux", "load-buffer", "-")
	loadCmd.Stdin = strings.NewReader(text)
	if err := loadCmd.Run(); err != nil {
		return fmt.Errorf("tmux load-buffer: %w", err)
	}

	pasteCmd := exec.CommandContext(ctx, "tmux", "paste-buffer", "-d", "-t", target)
	if err := pasteCmd.Run(); err != nil {
		return fmt.Errorf("tmux paste-buffer: %w", err)
	}
	return nil
}

// filterTMUXEnv strips the TMUX environment variable so commands run from
// inside a tmux session can still manage a separate detached session.
func filterTMUXEnv(env []string) []string {
	result := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, "TMUX=") {
			result = append(result, e)
		}
	}
	return result
}

var windowListPattern = regexp.MustCompile(`^(\d+):\s+(.+)$`)

// parseWindowList parses "INDEX: NAME[*]" lines from list-windows.
func parseWindowList(output string) []WindowInfo {
	var windows []WindowInfo
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		matches := windowListPattern.FindStringSubmatch(line)
		if len(matches) < 3 {
			continue
		}
		idx, _ := strconv.Atoi(matches[1])
		name := matches[2]
		active := strings.HasSuffix(name, "*")
		name = strings.TrimSuffix(name, "*")
		windows = append(windows, WindowInfo{Index: idx, Name: name, Active: active})
	}
	return windows
}
