// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package dispatch implements the action dispatcher (spec §4.10): the four
// authenticated actions a paired client can send over the data transport,
// each translated into a Terminal-pane adapter operation and acked with a
// model.ActionResult.
package dispatch

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shaneholloman/arc0d/internal/model"
	"github.com/shaneholloman/arc0d/internal/session"
	"github.com/shaneholloman/arc0d/internal/terminal"
)

// providerCommand maps a provider to the CLI binary it launches in a fresh
// pane. The binary name matches the executable each coding-agent CLI ships.
var providerCommand = map[model.Provider]string{
	model.ProviderClaude: "claude",
	model.ProviderCodex:  "codex",
	model.ProviderGemini: "gemini",
}

// lookPath is overridable in tests.
var lookPath = exec.LookPath

// Dispatcher routes decoded action payloads to the Terminal-pane adapter.
type Dispatcher struct {
	adapter  terminal.Adapter
	sessions *session.Registry
}

// New creates a Dispatcher over adapter and the live session registry.
func New(adapter terminal.Adapter, sessions *session.Registry) *Dispatcher {
	return &Dispatcher{adapter: adapter, sessions: sessions}
}

// OpenSessionInput is the post-decrypt payload for the openSession action.
type OpenSessionInput struct {
	Provider model.Provider `json:"provider"`
	Name     string         `json:"name,omitempty"`
	Cwd      string         `json:"cwd"`
}

// OpenSession validates the request, ensures the default multiplexer
// session exists, and launches the provider CLI in a fresh window (spec
// §4.10).
func (d *Dispatcher) OpenSession(ctx context.Context, raw json.RawMessage) model.ActionResult {
	var in OpenSessionInput
	if err := json.Unmarshal(raw, &in); err != nil || in.Cwd == "" {
		return model.Error(model.CodeInvalidPayload, "openSession: malformed input")
	}
	cmdName, ok := providerCommand[in.Provider]
	if !ok {
		return model.Error(model.CodeInvalidPayload, "openSession: unknown provider")
	}

	cwd, err := expandHome(in.Cwd)
	if err != nil {
		return model.Error(model.CodeInvalidCwd, "openSession: cannot resolve cwd")
	}
	if info, err := os.Stat(cwd); err != nil || !info.IsDir() {
		return model.Error(model.CodeInvalidCwd, "openSession: cwd does not exist")
	}

	if !d.adapter.IsInstalled() {
		return model.Error(model.CodeTmuxNotInstalled, "openSession: multiplexer not installed")
	}
	if _, err := lookPath(cmdName); err != nil {
		return model.Error(model.CodeProviderNotFound, "openSession: provider CLI not on PATH")
	}

	if _, err := d.adapter.EnsureDefaultSession(ctx); err != nil {
		return model.Error(model.CodeSessionCreateFail, "openSession: "+err.Error())
	}
	if _, err := d.adapter.CreateWindow(ctx, in.Name, cwd, []string{cmdName}); err != nil {
		return model.Error(model.CodeSessionCreateFail, "openSession: "+err.Error())
	}

	return model.Success()
}

// SendPromptInput is the post-decrypt payload for the sendPrompt action.
type SendPromptInput struct {
	SessionID     string `json:"sessionId"`
	Text          string `json:"text"`
	Model         string `json:"model,omitempty"`
	Mode          string `json:"mode,omitempty"`
	LastMessageID string `json:"lastMessageId,omitempty"`
	LastMessageTs string `json:"lastMessageTs,omitempty"`
}

// SendPrompt locates the session's pane and types text followed by Enter
// (spec §4.10). Per-pane serialization is provided by the adapter.
func (d *Dispatcher) SendPrompt(ctx context.Context, raw json.RawMessage) model.ActionResult {
	var in SendPromptInput
	if err := json.Unmarshal(raw, &in); err != nil || in.SessionID == "" {
		return model.Error(model.CodeInvalidPayload, "sendPrompt: malformed input")
	}

	pane, result := d.findPane(ctx, in.SessionID)
	if result != nil {
		return *result
	}

	if err := d.adapter.SendText(ctx, pane, in.Text, true); err != nil {
		return model.Error(model.CodePaneNotFound, "sendPrompt: "+err.Error())
	}
	return model.Success()
}

// StopAgentInput is the post-decrypt payload for the stopAgent action.
type StopAgentInput struct {
	SessionID string `json:"sessionId"`
}

// StopAgent sends Escape to the session's pane (spec §4.10).
func (d *Dispatcher) StopAgent(ctx context.Context, raw json.RawMessage) model.ActionResult {
	var in StopAgentInput
	if err := json.Unmarshal(raw, &in); err != nil || in.SessionID == "" {
		return model.Error(model.CodeInvalidPayload, "stopAgent: malformed input")
	}

	pane, result := d.findPane(ctx, in.SessionID)
	if result != nil {
		return *result
	}

	if err := d.adapter.SendKey(ctx, pane, "Escape"); err != nil {
		return model.Error(model.CodePaneNotFound, "stopAgent: "+err.Error())
	}
	return model.Success()
}

// ToolUseResponse is the discriminated response payload of approveToolUse.
// Kind selects which of the three shapes is populated:
//   - "tool": OptionIndex selects a numbered permission-prompt choice.
//   - "plan": Approved accepts or rejects a proposed plan.
//   - "answers": FreeText is typed verbatim (a multi-question answer blob).
type ToolUseResponse struct {
	Kind        string `json:"kind"`
	OptionIndex int    `json:"optionIndex,omitempty"`
	Approved    bool   `json:"approved,omitempty"`
	FreeText    string `json:"freeText,omitempty"`
}

// ApproveToolUseInput is the post-decrypt payload for the approveToolUse
// action.
type ApproveToolUseInput struct {
	SessionID string          `json:"sessionId"`
	ToolUseID string          `json:"toolUseId"`
	ToolName  string          `json:"toolName"`
	Response  ToolUseResponse `json:"response"`
}

// ApproveToolUse serializes the client's response into the keystroke
// sequence the pane expects (spec §4.10).
func (d *Dispatcher) ApproveToolUse(ctx context.Context, raw json.RawMessage) model.ActionResult {
	var in ApproveToolUseInput
	if err := json.Unmarshal(raw, &in); err != nil || in.SessionID == "" {
		return model.Error(model.CodeInvalidPayload, "approveToolUse: malformed input")
	}

	pane, result := d.findPane(ctx, in.SessionID)
	if result != nil {
		return *result
	}

	var err error
	switch in.Response.Kind {
	case "tool":
		err = d.adapter.SendText(ctx, pane, strconv.Itoa(in.Response.OptionIndex), true)
	case "plan":
		digit := "2"
		if in.Response.Approved {
			digit = "1"
		}
		err = d.adapter.SendText(ctx, pane, digit, true)
	case "answers":
		err = d.adapter.SendText(ctx, pane, in.Response.FreeText, true)
	default:
		return model.Error(model.CodeInvalidPayload, "approveToolUse: unknown response kind")
	}
	if err != nil {
		return model.Error(model.CodePaneNotFound, "approveToolUse: "+err.Error())
	}
	return model.Success()
}

// findPane resolves sessionId to its live pane, returning a non-nil
// ActionResult on failure that the caller should return verbatim.
func (d *Dispatcher) findPane(ctx context.Context, sessionID string) (terminal.PaneRef, *model.ActionResult) {
	sess, ok := d.sessions.Get(sessionID)
	if !ok || sess.Tty == "" {
		res := model.Error(model.CodeSessionNotFound, "session not found")
		return terminal.PaneRef{}, &res
	}
	pane, ok := d.adapter.FindPaneByTty(ctx, sess.Tty)
	if !ok {
		res := model.Error(model.CodePaneNotFound, "pane not found")
		return terminal.PaneRef{}, &res
	}
	return pane, nil
}

// expandHome expands a leading "~" to the invoking user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return home + path[1:], nil
}
