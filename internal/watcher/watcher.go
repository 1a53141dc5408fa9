// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/model"
)

const defaultStabilityDelay = 100 * time.Millisecond

// session tracks one watched (sessionID -> path) pair.
type session struct {
	id       string
	path     string
	cache    *lineCache
	watchDir string // directory currently watched on this session's behalf
	attached bool   // true once the target's parent directory is being watched
}

// FileWatcher is the fsnotify-backed TranscriptWatcher. It tolerates
// watching paths whose parent directories do not yet exist by attaching a
// shared "discovery" watch to the nearest existing ancestor and promoting
// pending sessions to a direct parent-directory watch as intermediate
// directories are created.
type FileWatcher struct {
	mu        sync.Mutex
	bus       bus.Bus
	fsw       *fsnotify.Watcher
	debouncer *Debouncer

	sessions map[string]*session   // sessionID -> session
	dirRefs  map[string]int        // watched dir -> ref count
	dirPend  map[string]map[string]bool // watched dir -> pending sessionIDs rooted there

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewFileWatcher creates a FileWatcher that publishes bus.KindMessagesNew
// events as new lines are tailed.
func NewFileWatcher(b bus.Bus) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}

	w := &FileWatcher{
		bus:       b,
		fsw:       fsw,
		debouncer: NewDebouncer(defaultStabilityDelay),
		sessions:  make(map[string]*session),
		dirRefs:   make(map[string]int),
		dirPend:   make(map[string]map[string]bool),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// WatchSession implements TranscriptWatcher.
func (w *FileWatcher) WatchSession(sessionID, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher: closed")
	}

	if existing, ok := w.sessions[sessionID]; ok {
		if existing.path == absPath {
			w.mu.Unlock()
			return nil
		}
		w.unwatchLocked(sessionID)
	}

	s := &session{id: sessionID, path: absPath, cache: newLineCache()}
	w.sessions[sessionID] = s
	w.mu.Unlock()

	w.attachToNearestAncestor(sessionID)
	return nil
}

// UnwatchSession implements TranscriptWatcher.
func (w *FileWatcher) UnwatchSession(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unwatchLocked(sessionID)
}

func (w *FileWatcher) unwatchLocked(sessionID string) {
	s, ok := w.sessions[sessionID]
	if !ok {
		return
	}
	delete(w.sessions, sessionID)
	w.debouncer.Cancel(sessionID)

	if s.watchDir != "" {
		w.releaseDirLocked(s.watchDir, sessionID)
	}
}

func (w *FileWatcher) releaseDirLocked(dir, sessionID string) {
	if pend, ok := w.dirPend[dir]; ok {
		delete(pend, sessionID)
		if len(pend) == 0 {
			delete(w.dirPend, dir)
		}
	}
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		_ = w.fsw.Remove(dir)
	}
}

// GetLinesSince implements TranscriptWatcher.
func (w *FileWatcher) GetLinesSince(sessionID, lastTs string) []model.TranscriptLine {
	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return s.cache.since(lastTs)
}

// Close implements TranscriptWatcher.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	_ = w.fsw.Close()
	w.wg.Wait()
	return nil
}

// attachToNearestAncestor finds the nearest existing ancestor directory of
// the session's target path, watches it (ref-counted), and immediately
// attempts promotion to close the race between the existence check and the
// watch becoming live.
func (w *FileWatcher) attachToNearestAncestor(sessionID string) {
	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	ancestor := nearestExistingAncestor(filepath.Dir(s.path))
	s.watchDir = ancestor
	if w.dirPend[ancestor] == nil {
		w.dirPend[ancestor] = make(map[string]bool)
	}
	w.dirPend[ancestor][sessionID] = true
	firstRef := w.dirRefs[ancestor] == 0
	w.dirRefs[ancestor]++
	w.mu.Unlock()

	if firstRef {
		if err := w.fsw.Add(ancestor); err != nil {
			log.Printf("watcher: add watch on %s: %v", ancestor, err)
		}
	}

	w.checkPromotion(sessionID)
}

// checkPromotion re-evaluates whether sessionID's watch can be promoted
// closer to (or onto) its target file, walking one ancestor level at a
// time, and performs the initial full read once the parent directory and
// file both exist.
func (w *FileWatcher) checkPromotion(sessionID string) {
	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	target := s.path
	currentDir := s.watchDir
	alreadyAttached := s.attached
	w.mu.Unlock()

	parent := filepath.Dir(target)
	nearest := nearestExistingAncestor(parent)

	if nearest != currentDir {
		// A deeper ancestor now exists; re-subscribe at that level.
		w.mu.Lock()
		if s2, ok := w.sessions[sessionID]; ok && s2 == s {
			w.releaseDirLocked(currentDir, sessionID)
			s.watchDir = nearest
			if w.dirPend[nearest] == nil {
				w.dirPend[nearest] = make(map[string]bool)
			}
			w.dirPend[nearest][sessionID] = true
			firstRef := w.dirRefs[nearest] == 0
			w.dirRefs[nearest]++
			w.mu.Unlock()
			if firstRef {
				if err := w.fsw.Add(nearest); err != nil {
					log.Printf("watcher: add watch on %s: %v", nearest, err)
				}
			}
		} else {
			w.mu.Unlock()
		}
		// Recurse: the newly watched directory may itself already satisfy
		// promotion (parent == nearest) or may need further levels.
		w.checkPromotion(sessionID)
		return
	}

	if nearest != parent {
		// Parent still doesn't exist; stay pending on nearest ancestor.
		return
	}

	if alreadyAttached {
		return
	}

	w.mu.Lock()
	if s2, ok := w.sessions[sessionID]; ok && s2 == s {
		s.attached = true
		if pend, ok := w.dirPend[parent]; ok {
			delete(pend, sessionID)
			if len(pend) == 0 {
				delete(w.dirPend, parent)
			}
		}
	}
	w.mu.Unlock()

	w.debouncer.Debounce(sessionID, func() { w.initialRead(sessionID) })
}

// initialRead performs the first full read of a newly-attached session's
// transcript file, if it exists yet. A file may legitimately not exist
// immediately after its parent directory is created.
func (w *FileWatcher) initialRead(sessionID string) {
	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	w.mu.Unlock()
	if !ok {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	lines := s.cache.appendFrom(data, int64(len(data)))
	w.publish(sessionID, lines)
}

// tail reads from the session's recorded offset to the file's current EOF.
func (w *FileWatcher) tail(sessionID string) {
	w.mu.Lock()
	s, ok := w.sessions[sessionID]
	w.mu.Unlock()
	if !ok {
		return
	}

	f, err := os.Open(s.path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	size := info.Size()
	offset := s.cache.readOffset()
	if size <= offset {
		return
	}

	if _, err := f.Seek(offset, 0); err != nil {
		return
	}
	buf := make([]byte, size-offset)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return
	}
	lines := s.cache.appendFrom(buf[:n], offset+int64(n))
	w.publish(sessionID, lines)
}

func (w *FileWatcher) publish(sessionID string, lines []model.TranscriptLine) {
	if len(lines) == 0 {
		return
	}
	w.bus.Publish(context.Background(), bus.KindMessagesNew, bus.MessagesNewPayload{
		SessionID: sessionID,
		Lines:     lines,
	})
}

func (w *FileWatcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err)
		}
	}
}

func (w *FileWatcher) handleEvent(ev fsnotify.Event) {
	dir := filepath.Dir(ev.Name)

	w.mu.Lock()
	pending := make([]string, 0, len(w.dirPend[dir]))
	for id := range w.dirPend[dir] {
		pending = append(pending, id)
	}
	var attachedMatch string
	for id, s := range w.sessions {
		if s.attached && s.path == ev.Name {
			attachedMatch = id
			break
		}
	}
	w.mu.Unlock()

	if attachedMatch != "" && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
		w.debouncer.Debounce(attachedMatch, func() { w.tail(attachedMatch) })
	}

	if ev.Has(fsnotify.Create) {
		for _, id := range pending {
			w.checkPromotion(id)
		}
	}
}

// nearestExistingAncestor walks up from dir until it finds a directory
// that currently exists, returning "/" (or the volume root) at worst.
func nearestExistingAncestor(dir string) string {
	dir = filepath.Clean(dir)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir || parent == "." || !strings.HasPrefix(dir, parent) {
			return parent
		}
		dir = parent
	}
}
