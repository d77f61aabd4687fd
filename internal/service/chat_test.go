package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
	"github.com/chatsim/chatsim/internal/queue"
)

type chatFixture struct {
	simRepo     *MockSimulationRepository
	messageRepo *MockMessageRepository
	personaRepo *MockPersonaRepository
	provider    *MockProvider
	summaries   *MockSummaryCache
	queues      *queue.Manager
	svc         *ChatService
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		simRepo:     new(MockSimulationRepository),
		messageRepo: new(MockMessageRepository),
		personaRepo: new(MockPersonaRepository),
		provider:    new(MockProvider),
		summaries:   new(MockSummaryCache),
		queues:      queue.NewManager(100),
	}
	f.svc = NewChatService(
		f.simRepo, f.messageRepo, f.personaRepo, f.queues,
		&stubRouter{provider: f.provider}, f.summaries, "mock", 0.7,
	)
	return f
}

func TestSendMessage_PersistsThenMirrorsToQueue(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1", "p2"}, 4)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	f.simRepo.On("IncrementMessageCount", mock.Anything, sim.ID).Return(nil)
	f.personaRepo.On("AddMemory", mock.Anything, mock.Anything, domain.MemoryShortTerm, mock.Anything).Return(nil)

	msg, err := f.svc.SendMessage(context.Background(), sim.ID, "what about consensus?")
	assert.NoError(t, err)
	assert.Equal(t, domain.RoleUser, msg.Role)
	assert.Equal(t, domain.MessageCompleted, msg.Status)
	assert.Nil(t, msg.PersonaID)

	// mirrored into the queue and fanned out to both personas' memory
	assert.Equal(t, 1, f.queues.Stats(sim.ID).CompletedCount)
	f.personaRepo.AssertNumberOfCalls(t, "AddMemory", 2)
}

func TestSendMessage_RejectedWhenInterruptionDisabled(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)
	sim.Config.AllowInterruption = false

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)

	_, err := f.svc.SendMessage(context.Background(), sim.ID, "hello?")
	assert.ErrorIs(t, err, ErrInterruptionDisabled)
}

func TestSendMessage_AllowedWhenPausedEvenIfInterruptionDisabled(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)
	sim.Config.AllowInterruption = false
	sim.Status = domain.StatusPaused

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.simRepo.On("IncrementMessageCount", mock.Anything, sim.ID).Return(nil)
	f.personaRepo.On("AddMemory", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.SendMessage(context.Background(), sim.ID, "hello?")
	assert.NoError(t, err)
}

func TestRecent_PrefersQueueOverStore(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.queues.AddCompleted(sim.ID, domain.Message{
		ID: "msg_live", SessionID: sim.ID, Status: domain.MessageCompleted,
	})

	messages, err := f.svc.Recent(context.Background(), sim.ID, 10)
	assert.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, "msg_live", messages[0].ID)
	assert.Equal(t, domain.MessageCompleted, messages[0].Status)
	f.messageRepo.AssertNotCalled(t, "Recent", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecent_FallsBackToStoreAfterRestart(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("Recent", mock.Anything, sim.ID, 10).
		Return([]domain.Message{{ID: "msg_durable"}}, nil)

	messages, err := f.svc.Recent(context.Background(), sim.ID, 10)
	assert.NoError(t, err)
	assert.Equal(t, "msg_durable", messages[0].ID)
}

func TestTLDR_ServesFromCache(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("Count", mock.Anything, sim.ID).Return(7, nil)
	f.summaries.On("Get", mock.Anything, sim.ID, "text", 7).Return("cached tldr", true, nil)

	summary, err := f.svc.TLDR(context.Background(), sim.ID, llm.SummaryText)
	assert.NoError(t, err)
	assert.True(t, summary.Cached)
	assert.Equal(t, "cached tldr", summary.Content)
	f.provider.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestTLDR_GeneratesAndCachesOnMiss(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("Count", mock.Anything, sim.ID).Return(2, nil)
	f.summaries.On("Get", mock.Anything, sim.ID, "video", 2).Return("", false, nil)
	f.messageRepo.On("ListBySession", mock.Anything, sim.ID, 2, 0).
		Return([]domain.Message{{ID: "m1", Content: "a"}, {ID: "m2", Content: "b"}}, nil)
	f.provider.On("Chat", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.MaxTokens == summaryMaxTokensVideo
	})).Return(&llm.Response{Content: "fresh tldr"}, nil)
	f.summaries.On("Set", mock.Anything, sim.ID, "video", 2, "fresh tldr").Return(nil)

	summary, err := f.svc.TLDR(context.Background(), sim.ID, llm.SummaryVideo)
	assert.NoError(t, err)
	assert.False(t, summary.Cached)
	assert.Equal(t, "fresh tldr", summary.Content)
	f.summaries.AssertCalled(t, "Set", mock.Anything, sim.ID, "video", 2, "fresh tldr")
}

func TestTLDR_EmptyConversation(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("Count", mock.Anything, sim.ID).Return(0, nil)

	summary, err := f.svc.TLDR(context.Background(), sim.ID, llm.SummaryText)
	assert.NoError(t, err)
	assert.Contains(t, summary.Content, "No conversation")
}

func TestClearMessages_DropsQueueAndCache(t *testing.T) {
	f := newChatFixture()
	sim := testSim([]string{"p1"}, 1)

	f.simRepo.On("Get", mock.Anything, sim.ID).Return(sim, nil)
	f.messageRepo.On("DeleteBySession", mock.Anything, sim.ID).Return(5, nil)
	f.summaries.On("Invalidate", mock.Anything, sim.ID).Return(nil)
	f.queues.AddCompleted(sim.ID, domain.Message{ID: "msg_1", SessionID: sim.ID})

	deleted, err := f.svc.ClearMessages(context.Background(), sim.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, deleted)
	assert.Equal(t, 0, f.queues.Stats(sim.ID).CompletedCount)
}
