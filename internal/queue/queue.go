// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package queue implements the per-client outbound FIFO batch queue: at
// most one batch in flight per socket, order preserved, and a slow or
// disconnected client never blocks the producer (spec §4.8).
package queue

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/shaneholloman/arc0d/internal/model"
)

// Transmitter writes one batch to the underlying socket. Delivery is
// fire-and-forget from the queue's point of view: the corresponding ack
// arrives later, out of band, via Ack.
type Transmitter interface {
	Send(batch model.TimelineBatch, encrypted bool) error
}

type queuedBatch struct {
	batch     model.TimelineBatch
	encrypted bool
	resolve   func()
}

// Queue is one socket's outbound FIFO.
type Queue struct {
	socketID string
	tx       Transmitter

	mu       sync.Mutex
	pending  []queuedBatch
	current  *queuedBatch
	inFlight bool
	stopped  bool
}

// New creates a Queue bound to one socket's Transmitter.
func New(socketID string, tx Transmitter) *Queue {
	return &Queue{socketID: socketID, tx: tx}
}

// Enqueue pushes a batch onto the tail of the queue, assigning it a fresh
// batchId if it doesn't already have one, and pumps immediately if nothing
// is currently in flight. resolve, if non-nil, is called once the batch is
// acked or the socket disconnects — callers awaiting delivery (cursor
// resume sync, §4.9) block on it.
func (q *Queue) Enqueue(batch model.TimelineBatch, encrypted bool, resolve func()) {
	if batch.BatchID == "" {
		batch.BatchID = uuid.New().String()
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		if resolve != nil {
			resolve()
		}
		return
	}
	q.pending = append(q.pending, queuedBatch{batch: batch, encrypted: encrypted, resolve: resolve})
	shouldPump := !q.inFlight
	q.mu.Unlock()

	if shouldPump {
		q.pump()
	}
}

// pump sends the head of the queue if nothing else is already in flight.
func (q *Queue) pump() {
	q.mu.Lock()
	if q.stopped || q.inFlight || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.inFlight = true
	q.current = &next
	q.mu.Unlock()

	if err := q.tx.Send(next.batch, next.encrypted); err != nil {
		log.Printf("[queue] socket %s: send batch %s failed: %v", q.socketID, next.batch.BatchID, err)
		q.OnDisconnect()
	}
}

// Ack marks the in-flight batch delivered once the client acks batchId,
// resolves its waiter if any, and pumps the next queued batch.
func (q *Queue) Ack(batchID string) {
	q.mu.Lock()
	if q.current == nil || q.current.batch.BatchID != batchID {
		q.mu.Unlock()
		return
	}
	resolve := q.current.resolve
	q.current = nil
	q.inFlight = false
	q.mu.Unlock()

	if resolve != nil {
		resolve()
	}
	q.pump()
}

// OnDisconnect drops every queued and in-flight batch, resolving their
// waiters so nothing blocks forever on a client that went away.
func (q *Queue) OnDisconnect() {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	current := q.current
	q.current = nil
	q.inFlight = false
	q.mu.Unlock()

	if current != nil && current.resolve != nil {
		current.resolve()
	}
	for _, item := range dropped {
		if item.resolve != nil {
			item.resolve()
		}
	}
}

// Stop quiesces the queue: equivalent to OnDisconnect, but permanent —
// further Enqueue calls resolve immediately without ever sending.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.OnDisconnect()
}
