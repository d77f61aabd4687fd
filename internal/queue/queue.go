// Package queue provides the in-process, per-session staging area for
// messages awaiting real-time delivery. It is a transient mirror of the
// durable message store: a process restart loses everything held here, so
// callers must persist before (or instead of) enqueuing.
package queue

import (
	"sync"

	"github.com/chatsim/chatsim/internal/domain"
)

// DefaultMaxSize bounds a session queue when no capacity is configured
const DefaultMaxSize = 1000

// Stats is a snapshot of one session queue
type Stats struct {
	QueueSize       int `json:"queue_size"`
	ProcessingCount int `json:"processing_count"`
	CompletedCount  int `json:"completed_count"`
}

// Queue holds pending, in-flight and completed messages for one session.
// Pending is a bounded ring: when full, the oldest pending entry is silently
// evicted so a slow consumer loses history, not throughput.
type Queue struct {
	mu         sync.Mutex
	maxSize    int
	pending    []domain.Message
	processing map[string]domain.Message
	completed  []domain.Message
}

// NewQueue creates a session queue with the given capacity
func NewQueue(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Queue{
		maxSize:    maxSize,
		processing: make(map[string]domain.Message),
	}
}

// Enqueue appends a pending message, evicting the oldest pending entry
// when the queue is at capacity. Never blocks.
func (q *Queue) Enqueue(message domain.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	message.Status = domain.MessagePending
	if len(q.pending) >= q.maxSize {
		q.pending = q.pending[1:]
	}
	q.pending = append(q.pending, message)
}

// Dequeue pops the oldest pending message, marks it processing and tracks
// it in-flight. Returns nil when nothing is pending.
func (q *Queue) Dequeue() *domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	message := q.pending[0]
	q.pending = q.pending[1:]
	message.Status = domain.MessageProcessing
	q.processing[message.ID] = message
	return &message
}

// MarkCompleted moves an in-flight message to the completed list.
// Unknown ids are ignored.
func (q *Queue) MarkCompleted(messageID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	message, ok := q.processing[messageID]
	if !ok {
		return
	}
	delete(q.processing, messageID)
	message.Status = domain.MessageCompleted
	q.completed = append(q.completed, message)
}

// MarkFailed drops an in-flight message. Unknown ids are ignored.
func (q *Queue) MarkFailed(messageID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	message, ok := q.processing[messageID]
	if !ok {
		return
	}
	delete(q.processing, messageID)
	message.Status = domain.MessageFailed
}

// AddCompleted inserts a message directly as completed, bypassing the
// pending/processing stages. Used for messages that need no async work.
func (q *Queue) AddCompleted(message domain.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	message.Status = domain.MessageCompleted
	q.completed = append(q.completed, message)
}

// Recent returns the last limit completed messages in insertion order.
// A non-positive limit returns all of them.
func (q *Queue) Recent(limit int) []domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	start := 0
	if limit > 0 && len(q.completed) > limit {
		start = len(q.completed) - limit
	}
	out := make([]domain.Message, len(q.completed)-start)
	copy(out, q.completed[start:])
	return out
}

// Stats returns a snapshot of queue depths
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		QueueSize:       len(q.pending),
		ProcessingCount: len(q.processing),
		CompletedCount:  len(q.completed),
	}
}

// Manager owns one Queue per session. Operations on different sessions
// proceed independently; the manager lock only guards the queue map.
type Manager struct {
	mu      sync.Mutex
	maxSize int
	queues  map[string]*Queue
}

// NewManager creates a queue manager with the given per-session capacity
func NewManager(maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Manager{
		maxSize: maxSize,
		queues:  make(map[string]*Queue),
	}
}

// GetOrCreate returns the queue for a session, creating it on first access
func (m *Manager) GetOrCreate(sessionID string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[sessionID]
	if !ok {
		q = NewQueue(m.maxSize)
		m.queues[sessionID] = q
	}
	return q
}

// Enqueue appends a pending message to a session's queue
func (m *Manager) Enqueue(sessionID string, message domain.Message) {
	m.GetOrCreate(sessionID).Enqueue(message)
}

// Dequeue pops the oldest pending message for a session
func (m *Manager) Dequeue(sessionID string) *domain.Message {
	return m.GetOrCreate(sessionID).Dequeue()
}

// MarkCompleted marks an in-flight message completed
func (m *Manager) MarkCompleted(sessionID, messageID string) {
	m.GetOrCreate(sessionID).MarkCompleted(messageID)
}

// MarkFailed marks an in-flight message failed
func (m *Manager) MarkFailed(sessionID, messageID string) {
	m.GetOrCreate(sessionID).MarkFailed(messageID)
}

// AddCompleted inserts a message directly as completed
func (m *Manager) AddCompleted(sessionID string, message domain.Message) {
	m.GetOrCreate(sessionID).AddCompleted(message)
}

// Recent returns the last limit completed messages for a session
func (m *Manager) Recent(sessionID string, limit int) []domain.Message {
	return m.GetOrCreate(sessionID).Recent(limit)
}

// Stats returns queue depths for a session
func (m *Manager) Stats(sessionID string) Stats {
	return m.GetOrCreate(sessionID).Stats()
}

// Drop discards a session's queue, releasing its memory
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues, sessionID)
}
