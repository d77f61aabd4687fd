package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/stretchr/testify/assert"
)

func msg(id, content string) domain.Message {
	return domain.Message{
		ID:        id,
		SessionID: "sim_test",
		Content:   content,
		Role:      domain.RolePersona,
		Status:    domain.MessagePending,
	}
}

func TestQueue_DequeueTransitionsToProcessing(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue(msg("msg_1", "hello"))

	got := q.Dequeue()
	assert.NotNil(t, got)
	assert.Equal(t, "msg_1", got.ID)
	assert.Equal(t, domain.MessageProcessing, got.Status)

	stats := q.Stats()
	assert.Equal(t, 0, stats.QueueSize)
	assert.Equal(t, 1, stats.ProcessingCount)

	assert.Nil(t, q.Dequeue())
}

func TestQueue_MarkCompleted(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue(msg("msg_1", "a"))
	q.Dequeue()
	q.MarkCompleted("msg_1")

	stats := q.Stats()
	assert.Equal(t, 0, stats.ProcessingCount)
	assert.Equal(t, 1, stats.CompletedCount)

	recent := q.Recent(10)
	assert.Len(t, recent, 1)
	assert.Equal(t, domain.MessageCompleted, recent[0].Status)
}

func TestQueue_MarkFailedDropsMessage(t *testing.T) {
	q := NewQueue(10)
	q.Enqueue(msg("msg_1", "a"))
	q.Dequeue()
	q.MarkFailed("msg_1")

	stats := q.Stats()
	assert.Equal(t, 0, stats.ProcessingCount)
	assert.Equal(t, 0, stats.CompletedCount)

	// unknown ids are ignored
	q.MarkFailed("msg_unknown")
	q.MarkCompleted("msg_unknown")
}

func TestQueue_BoundedEvictsOldestPending(t *testing.T) {
	q := NewQueue(5)
	for i := 0; i < 8; i++ {
		q.Enqueue(msg(fmt.Sprintf("msg_%d", i), "x"))
	}

	assert.Equal(t, 5, q.Stats().QueueSize)

	// the three oldest were evicted, msg_3 is now the head
	got := q.Dequeue()
	assert.Equal(t, "msg_3", got.ID)
}

func TestQueue_AddCompletedBypassesPending(t *testing.T) {
	q := NewQueue(10)
	q.AddCompleted(msg("msg_1", "direct"))

	stats := q.Stats()
	assert.Equal(t, 0, stats.QueueSize)
	assert.Equal(t, 1, stats.CompletedCount)
}

func TestQueue_RecentReturnsInsertionOrder(t *testing.T) {
	q := NewQueue(10)
	for i := 0; i < 5; i++ {
		q.AddCompleted(msg(fmt.Sprintf("msg_%d", i), "x"))
	}

	recent := q.Recent(3)
	assert.Len(t, recent, 3)
	assert.Equal(t, "msg_2", recent[0].ID)
	assert.Equal(t, "msg_4", recent[2].ID)

	all := q.Recent(0)
	assert.Len(t, all, 5)
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m := NewManager(10)
	m.Enqueue("sim_a", msg("msg_a", "a"))
	m.AddCompleted("sim_b", msg("msg_b", "b"))

	assert.Equal(t, 1, m.Stats("sim_a").QueueSize)
	assert.Equal(t, 0, m.Stats("sim_a").CompletedCount)
	assert.Equal(t, 1, m.Stats("sim_b").CompletedCount)

	// same queue instance on repeated access
	assert.Same(t, m.GetOrCreate("sim_a"), m.GetOrCreate("sim_a"))
}

func TestManager_Drop(t *testing.T) {
	m := NewManager(10)
	m.AddCompleted("sim_a", msg("msg_1", "x"))
	m.Drop("sim_a")
	assert.Equal(t, 0, m.Stats("sim_a").CompletedCount)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			session := fmt.Sprintf("sim_%d", n%2)
			for j := 0; j < 50; j++ {
				m.Enqueue(session, msg(fmt.Sprintf("msg_%d_%d", n, j), "x"))
				if got := m.Dequeue(session); got != nil {
					m.MarkCompleted(session, got.ID)
				}
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for _, s := range []string{"sim_0", "sim_1"} {
		st := m.Stats(s)
		total += st.QueueSize + st.ProcessingCount + st.CompletedCount
	}
	assert.Equal(t, 400, total)
}
