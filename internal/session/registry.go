// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/model"
)

// defaultRescanInterval is the periodic fallback reconciliation period.
// fsnotify watches on existing provider roots give lower-latency reaction;
// the ticker is the authoritative driver since a provider root may not
// exist at startup and deferred fsnotify attachment isn't worth the
// complexity for a component whose staleness window is seconds, not
// milliseconds (unlike the transcript watcher, see internal/watcher).
const defaultRescanInterval = 2 * time.Second

// Registry derives the live Session set across all configured providers.
type Registry struct {
	mu         sync.RWMutex
	bus        bus.Bus
	strategies []Strategy
	sessions   map[string]model.Session // sessionID -> Session

	interval time.Duration
	fsw      *fsnotify.Watcher
	watched  map[string]bool

	closeCh chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewRegistry creates a Registry over the given provider strategies.
func NewRegistry(b bus.Bus, strategies []Strategy) *Registry {
	return &Registry{
		bus:        b,
		strategies: strategies,
		sessions:   make(map[string]model.Session),
		interval:   defaultRescanInterval,
		watched:    make(map[string]bool),
		closeCh:    make(chan struct{}),
	}
}

// SetRescanInterval overrides the periodic fallback reconciliation period.
func (r *Registry) SetRescanInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()
}

// Start performs the initial scan (emitting session:start per descriptor
// followed by sessions:change) and begins the reconciliation loop.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("session: fsnotify unavailable, falling back to polling only: %v", err)
	} else {
		r.fsw = fsw
		r.wg.Add(1)
		go r.processFsEvents()
	}

	r.reconcile(ctx, true)
	r.watchRoots()

	r.wg.Add(1)
	go r.rescanLoop(ctx)

	return nil
}

// Close stops the reconciliation loop and releases resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.closeCh)
	if r.fsw != nil {
		_ = r.fsw.Close()
	}
	r.wg.Wait()
	return nil
}

// GetActiveSessions returns a snapshot of the currently-live sessions.
func (r *Registry) GetActiveSessions() []model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Get returns the session for sessionID, if it is currently live.
func (r *Registry) Get(sessionID string) (model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) watchRoots() {
	if r.fsw == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, strat := range r.strategies {
		for _, root := range strat.WatchRoots() {
			if r.watched[root] {
				continue
			}
			if err := r.fsw.Add(root); err != nil {
				// Root probably doesn't exist yet; the periodic rescan will
				// still pick up sessions once the provider creates it.
				continue
			}
			r.watched[root] = true
		}
	}
}

func (r *Registry) processFsEvents() {
	defer r.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-r.closeCh:
			return
		case _, ok := <-r.fsw.Events:
			if !ok {
				return
			}
			r.reconcile(ctx, false)
			r.watchRoots()
		case err, ok := <-r.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("session: fsnotify error: %v", err)
		}
	}
}

func (r *Registry) rescanLoop(ctx context.Context) {
	defer r.wg.Done()
	r.mu.RLock()
	interval := r.interval
	r.mu.RUnlock()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-r.closeCh:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			r.reconcile(ctx, false)
		}
	}
}

// reconcile scans every strategy, diffs the result against the current
// snapshot, and emits session:start/session:end for deltas and
// sessions:change whenever the set changed (or unconditionally on initial
// scan, per §4.3).
func (r *Registry) reconcile(ctx context.Context, initial bool) {
	next := make(map[string]model.Session)

	r.mu.RLock()
	strategies := r.strategies
	r.mu.RUnlock()

	for _, strat := range strategies {
		found, err := strat.Scan(ctx)
		if err != nil {
			log.Printf("session: scan failed for provider %s: %v", strat.Provider(), err)
			continue
		}
		for _, s := range found {
			next[s.SessionID] = s
		}
	}

	r.mu.Lock()
	prev := r.sessions
	changed := initial
	for id, s := range next {
		old, existed := prev[id]
		if !existed {
			changed = true
			r.bus.Publish(ctx, bus.KindSessionStart, bus.SessionStartPayload{Session: s})
		} else if old != s {
			changed = true
		}
	}
	for id := range prev {
		if _, stillThere := next[id]; !stillThere {
			changed = true
			r.bus.Publish(ctx, bus.KindSessionEnd, bus.SessionEndPayload{SessionID: id})
		}
	}
	r.sessions = next
	r.mu.Unlock()

	if changed {
		snapshot := r.GetActiveSessions()
		r.bus.Publish(ctx, bus.KindSessionsChange, bus.SessionsChangePayload{Sessions: snapshot})
	}
}
