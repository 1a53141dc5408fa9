// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package eventlog persists each session's permission-request events to its
// append-only sessions/<sessionId>.events.jsonl file (spec §6) and serves
// the most recent one back for cursor-based resume sync (spec §4.9 step 4b).
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shaneholloman/arc0d/internal/model"
)

// Store appends and reads per-session permission-event logs under dir.
type Store struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewStore creates a Store rooted at dir (typically config.Paths.SessionsDir()).
func NewStore(dir string) *Store {
	return &Store{dir: dir, files: make(map[string]*os.File)}
}

// Append records event to sessionID's event log, creating the file (and
// dir) on first use.
func (s *Store) Append(sessionID string, event model.PermissionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventlog: marshal event: %w", err)
	}
	data = append(data, '\n')

	f, err := s.fileFor(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = f.Write(data)
	return err
}

func (s *Store) fileFor(sessionID string) (*os.File, error) {
	s.mu.Lock()
	if f, ok := s.files[sessionID]; ok {
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("eventlog: create directory: %w", err)
	}
	path := filepath.Join(s.dir, sessionID+".events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}

	s.mu.Lock()
	if existing, ok := s.files[sessionID]; ok {
		s.mu.Unlock()
		f.Close()
		return existing, nil
	}
	s.files[sessionID] = f
	s.mu.Unlock()
	return f, nil
}

// Latest reads sessionID's event log from disk and returns its last
// successfully parsed entry, if any. A missing file is not an error.
func (s *Store) Latest(sessionID string) (model.PermissionEvent, bool, error) {
	path := filepath.Join(s.dir, sessionID+".events.jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PermissionEvent{}, false, nil
		}
		return model.PermissionEvent{}, false, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	defer f.Close()

	var last model.PermissionEvent
	found := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var ev model.PermissionEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		last = ev
		found = true
	}
	return last, found, nil
}

// Close releases every open file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		f.Close()
	}
	s.files = make(map[string]*os.File)
	return nil
}
