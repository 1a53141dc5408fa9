// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sort"
	"sync"

	"github.com/shaneholloman/arc0d/internal/model"
)

// lineCache holds the parsed transcript lines for one session plus the
// byte offset up to which the underlying file has been read.
type lineCache struct {
	mu     sync.RWMutex
	lines  []model.TranscriptLine
	offset int64
}

func newLineCache() *lineCache {
	return &lineCache{}
}

// appendFrom parses newly-read bytes as newline-delimited JSON and appends
// any successfully parsed lines to the cache. Invalid JSON lines are
// skipped without erroring, per the tailing contract. It returns the
// parsed lines for the caller to publish as a batch.
func (c *lineCache) appendFrom(data []byte, newOffset int64) []model.TranscriptLine {
	var appended []model.TranscriptLine

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		line, ok := parseLine(raw)
		if !ok {
			continue
		}
		appended = append(appended, line)
	}

	if len(appended) == 0 {
		c.mu.Lock()
		c.offset = newOffset
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.lines = append(c.lines, appended...)
	c.offset = newOffset
	c.mu.Unlock()

	return appended
}

func (c *lineCache) readOffset() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// since returns cached lines with timestamp strictly greater than lastTs,
// in file order. Empty lastTs returns everything.
func (c *lineCache) since(lastTs string) []model.TranscriptLine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if lastTs == "" {
		out := make([]model.TranscriptLine, len(c.lines))
		copy(out, c.lines)
		return out
	}

	// Transcripts are append-only and chronological, so cached lines are
	// non-decreasing by timestamp; binary search for the first line past
	// lastTs.
	idx := sort.Search(len(c.lines), func(i int) bool {
		return c.lines[i].Timestamp > lastTs
	})
	if idx >= len(c.lines) {
		return nil
	}
	out := make([]model.TranscriptLine, len(c.lines)-idx)
	copy(out, c.lines[idx:])
	return out
}

func parseLine(raw []byte) (model.TranscriptLine, bool) {
	var probe struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return model.TranscriptLine{}, false
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return model.TranscriptLine{Raw: json.RawMessage(cp), Timestamp: probe.Timestamp}, true
}
