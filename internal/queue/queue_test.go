// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/arc0d/internal/model"
)

type fakeTransmitter struct {
	mu   sync.Mutex
	sent []model.TimelineBatch
	err  error
}

func (f *fakeTransmitter) Send(batch model.TimelineBatch, encrypted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, batch)
	return nil
}

func (f *fakeTransmitter) sentBatchIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.sent))
	for i, b := range f.sent {
		ids[i] = b.BatchID
	}
	return ids
}

func TestQueue_OneInFlightAtATime(t *testing.T) {
	tx := &fakeTransmitter{}
	q := New("s1", tx)

	q.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, nil)
	q.Enqueue(model.TimelineBatch{BatchID: "b2"}, false, nil)

	// Only the first batch should have been sent; the second waits for ack.
	assert.Equal(t, []string{"b1"}, tx.sentBatchIDs())

	q.Ack("b1")
	assert.Equal(t, []string{"b1", "b2"}, tx.sentBatchIDs())
}

func TestQueue_PreservesOrder(t *testing.T) {
	tx := &fakeTransmitter{}
	q := New("s1", tx)

	for _, id := range []string{"b1", "b2", "b3"} {
		q.Enqueue(model.TimelineBatch{BatchID: id}, false, nil)
	}
	q.Ack("b1")
	q.Ack("b2")
	q.Ack("b3")

	assert.Equal(t, []string{"b1", "b2", "b3"}, tx.sentBatchIDs())
}

func TestQueue_AckIgnoresMismatchedBatchID(t *testing.T) {
	tx := &fakeTransmitter{}
	q := New("s1", tx)
	q.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, nil)
	q.Enqueue(model.TimelineBatch{BatchID: "b2"}, false, nil)

	q.Ack("not-the-head")
	assert.Equal(t, []string{"b1"}, tx.sentBatchIDs())
}

func TestQueue_OnDisconnectResolvesWaiters(t *testing.T) {
	tx := &fakeTransmitter{}
	q := New("s1", tx)

	var resolved int
	var mu sync.Mutex
	resolve := func() {
		mu.Lock()
		resolved++
		mu.Unlock()
	}

	q.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, resolve) // in flight
	q.Enqueue(model.TimelineBatch{BatchID: "b2"}, false, resolve) // queued

	q.OnDisconnect()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, resolved)
}

func TestQueue_SendFailureActsLikeDisconnect(t *testing.T) {
	tx := &fakeTransmitter{err: errors.New("boom")}
	q := New("s1", tx)

	resolved := make(chan struct{}, 1)
	q.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, func() { resolved <- struct{}{} })

	select {
	case <-resolved:
	default:
		t.Fatal("expected resolve to be called after send failure")
	}
}

func TestQueue_StoppedQueueResolvesImmediately(t *testing.T) {
	tx := &fakeTransmitter{}
	q := New("s1", tx)
	q.Stop()

	called := false
	q.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, func() { called = true })
	assert.True(t, called)
	assert.Empty(t, tx.sentBatchIDs())
}

func TestQueue_EnqueueAssignsBatchIDWhenMissing(t *testing.T) {
	tx := &fakeTransmitter{}
	q := New("s1", tx)
	q.Enqueue(model.TimelineBatch{}, false, nil)
	require.Len(t, tx.sentBatchIDs(), 1)
	assert.NotEmpty(t, tx.sentBatchIDs()[0])
}

func TestManager_RegisterEnqueueUnregister(t *testing.T) {
	m := NewManager()
	tx := &fakeTransmitter{}
	q := m.Register("s1", tx)

	q.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, nil)
	got, ok := m.Get("s1")
	require.True(t, ok)
	assert.Same(t, q, got)

	m.Unregister("s1")
	_, ok = m.Get("s1")
	assert.False(t, ok)
}

func TestManager_StopQuiescesAllQueues(t *testing.T) {
	m := NewManager()
	tx1, tx2 := &fakeTransmitter{}, &fakeTransmitter{}
	q1 := m.Register("s1", tx1)
	q2 := m.Register("s2", tx2)

	called1, called2 := false, false
	q1.Enqueue(model.TimelineBatch{BatchID: "b1"}, false, func() { called1 = true })
	q2.Enqueue(model.TimelineBatch{BatchID: "b2"}, false, func() { called2 = true })

	m.Stop()
	assert.True(t, called1)
	assert.True(t, called2)
}
