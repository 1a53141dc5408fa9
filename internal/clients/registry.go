// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package clients implements the paired-device registry: the durable set
// of devices that have completed pairing, each holding its auth-token hash
// and per-device encryption key.
package clients

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shaneholloman/arc0d/internal/crypto"
	"github.com/shaneholloman/arc0d/internal/model"
)

// fileJSON is the on-disk shape of clients.json.
type fileJSON struct {
	Clients map[string]model.Client `json:"clients"`
}

// RevokeNotifier is called when a client is revoked, so the data transport
// can close any socket bound to the revoked device. Registered by whatever
// owns the connected-socket set (internal/transport), not by the registry
// itself: the registry has no notion of live sockets.
type RevokeNotifier func(deviceID string)

// Registry is the paired-device store. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	path string

	clients map[string]model.Client

	notifyMu sync.Mutex
	notify   []RevokeNotifier
}

// Load reads clients.json from path, creating an empty registry in memory
// if the file does not yet exist.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, clients: make(map[string]model.Client)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clients: read %s: %w", path, err)
	}

	var f fileJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("clients: parse %s: %w", path, err)
	}
	if f.Clients != nil {
		r.clients = f.Clients
	}
	return r, nil
}

// OnRevoke registers a callback invoked whenever a client is revoked.
func (r *Registry) OnRevoke(fn RevokeNotifier) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.notify = append(r.notify, fn)
}

// List returns every paired client, in no particular order.
func (r *Registry) List() []model.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Get returns a single client record by device ID.
func (r *Registry) Get(deviceID string) (model.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[deviceID]
	return c, ok
}

// Validate hashes authToken and constant-time compares it against the
// stored hash for deviceID.
func (r *Registry) Validate(deviceID string, authToken []byte) bool {
	r.mu.RLock()
	c, ok := r.clients[deviceID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return crypto.ValidateAuthToken(authToken, c.AuthTokenHash)
}

// Touch updates a client's lastSeen to now and persists the change.
func (r *Registry) Touch(deviceID string) error {
	r.mu.Lock()
	c, ok := r.clients[deviceID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("clients: unknown device %q", deviceID)
	}
	now := time.Now().UTC()
	c.LastSeen = &now
	r.clients[deviceID] = c
	r.mu.Unlock()

	return r.persist()
}

// Add inserts a newly paired client and persists the registry.
func (r *Registry) Add(c model.Client) error {
	r.mu.Lock()
	r.clients[c.DeviceID] = c
	r.mu.Unlock()

	return r.persist()
}

// Revoke removes a client, persists the registry, and notifies any
// registered RevokeNotifiers so bound sockets can be closed.
func (r *Registry) Revoke(deviceID string) error {
	r.mu.Lock()
	_, existed := r.clients[deviceID]
	delete(r.clients, deviceID)
	r.mu.Unlock()

	if !existed {
		return nil
	}
	if err := r.persist(); err != nil {
		return err
	}

	r.notifyMu.Lock()
	notifiers := append([]RevokeNotifier(nil), r.notify...)
	r.notifyMu.Unlock()
	for _, fn := range notifiers {
		fn(deviceID)
	}
	return nil
}

// persist atomically writes clients.json via write-temp-then-rename, with
// owner-only file permissions since the file holds auth-token hashes and
// per-device encryption keys.
func (r *Registry) persist() error {
	r.mu.RLock()
	snapshot := fileJSON{Clients: make(map[string]model.Client, len(r.clients))}
	for k, v := range r.clients {
		snapshot.Clients[k] = v
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("clients: marshal: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("clients: create directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("clients: write tmp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("clients: rename tmp to %s: %w", r.path, err)
	}
	return nil
}
