// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package queue

import "sync"

// Manager owns one Queue per connected socket.
type Manager struct {
	mu     sync.Mutex
	queues map[string]*Queue
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{queues: make(map[string]*Queue)}
}

// Register creates (or replaces) the Queue for socketID.
func (m *Manager) Register(socketID string, tx Transmitter) *Queue {
	q := New(socketID, tx)
	m.mu.Lock()
	m.queues[socketID] = q
	m.mu.Unlock()
	return q
}

// Get returns the Queue for socketID, if registered.
func (m *Manager) Get(socketID string) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[socketID]
	return q, ok
}

// Unregister removes and stops socketID's queue.
func (m *Manager) Unregister(socketID string) {
	m.mu.Lock()
	q, ok := m.queues[socketID]
	delete(m.queues, socketID)
	m.mu.Unlock()
	if ok {
		q.OnDisconnect()
	}
}

// Stop quiesces every registered queue.
func (m *Manager) Stop() {
	m.mu.Lock()
	queues := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	for _, q := range queues {
		q.Stop()
	}
}
