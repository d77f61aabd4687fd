package advisor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func historyService() *Service {
	p := &scriptedProvider{responses: []string{"advice"}}
	return &Service{provider: newLocal(p)}
}

func TestHistory_ServesRecentTailWithTotal(t *testing.T) {
	s := historyService()
	for i := 0; i < 12; i++ {
		s.record(Advice{
			Question:  fmt.Sprintf("question %d", i),
			Content:   "advice",
			Mode:      "local",
			Timestamp: time.Now().UTC(),
		})
	}

	history := s.History(10)
	assert.Len(t, history.Entries, 10)
	assert.Equal(t, 12, history.TotalQueries)
	assert.Equal(t, "local", history.Mode)

	// oldest entries age out of the tail, newest come last
	assert.Equal(t, "question 2", history.Entries[0].Question)
	assert.Equal(t, "question 11", history.Entries[9].Question)
}

func TestHistory_EmptyLog(t *testing.T) {
	s := historyService()

	history := s.History(10)
	assert.Empty(t, history.Entries)
	assert.Equal(t, 0, history.TotalQueries)
}

func TestHistory_LogIsCapped(t *testing.T) {
	s := historyService()
	for i := 0; i < historyCap+25; i++ {
		s.record(Advice{Question: fmt.Sprintf("question %d", i)})
	}

	s.mu.Lock()
	stored := len(s.history)
	s.mu.Unlock()
	assert.Equal(t, historyCap, stored)

	// the total keeps counting past the cap
	assert.Equal(t, historyCap+25, s.Status().TotalQueries)
}

func TestStatus_ReportsMode(t *testing.T) {
	s := historyService()
	status := s.Status()
	assert.Equal(t, "local", status.Mode)
	assert.Equal(t, 0, status.TotalQueries)
}
