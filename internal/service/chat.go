package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
	"github.com/chatsim/chatsim/internal/queue"
)

// ErrInterruptionDisabled indicates a user message to a running simulation
// that was configured without user interruption.
var ErrInterruptionDisabled = errors.New("user interruption is disabled for this simulation")

// user interjections carry more weight than routine persona chatter
const userMemoryImportance = 0.8

const (
	summaryMaxTokensText  = 300
	summaryMaxTokensVideo = 150
)

// SummaryCache caches generated conversation summaries
type SummaryCache interface {
	Get(ctx context.Context, sessionID, format string, messageCount int) (string, bool, error)
	Set(ctx context.Context, sessionID, format string, messageCount int, summary string) error
	Invalidate(ctx context.Context, sessionID string) error
}

// ChatService handles conversation access: user interjections, history
// reads, queue introspection and summaries.
type ChatService struct {
	simRepo     domain.SimulationRepository
	messageRepo domain.MessageRepository
	personaRepo domain.PersonaRepository
	queues      *queue.Manager
	router      ProviderRouter
	summaries   SummaryCache
	provider    string
	temperature float64
}

// NewChatService creates a new chat service
func NewChatService(
	simRepo domain.SimulationRepository,
	messageRepo domain.MessageRepository,
	personaRepo domain.PersonaRepository,
	queues *queue.Manager,
	router ProviderRouter,
	summaries SummaryCache,
	provider string,
	temperature float64,
) *ChatService {
	return &ChatService{
		simRepo:     simRepo,
		messageRepo: messageRepo,
		personaRepo: personaRepo,
		queues:      queues,
		router:      router,
		summaries:   summaries,
		provider:    provider,
		temperature: temperature,
	}
}

// SendMessage injects a user message into a simulation's conversation.
// The message is persisted first, then mirrored into the session queue,
// and finally fanned out into each participant's short-term memory.
func (s *ChatService) SendMessage(ctx context.Context, simulationID, content string) (*domain.Message, error) {
	sim, err := s.simRepo.Get(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	if sim.Status == domain.StatusRunning && !sim.Config.AllowInterruption {
		return nil, ErrInterruptionDisabled
	}

	msg := &domain.Message{
		ID:        domain.NewID("msg"),
		SessionID: sim.ID,
		GroupID:   sim.GroupID,
		Content:   content,
		Role:      domain.RoleUser,
		Status:    domain.MessageCompleted,
		Timestamp: time.Now().UTC(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}
	if err := s.simRepo.IncrementMessageCount(ctx, sim.ID); err != nil {
		log.Warn().Err(err).Str("simulation_id", sim.ID).Msg("failed to bump message count")
	}
	s.queues.AddCompleted(sim.ID, *msg)

	for _, personaID := range sim.PersonaIDs {
		entry := domain.MemoryEntry{
			Content:    "User said: " + content,
			Importance: userMemoryImportance,
			Timestamp:  msg.Timestamp,
		}
		if err := s.personaRepo.AddMemory(ctx, personaID, domain.MemoryShortTerm, entry); err != nil {
			log.Warn().Err(err).Str("persona_id", personaID).Msg("failed to record memory")
		}
	}

	return msg, nil
}

// Messages returns a page of a simulation's durable history
func (s *ChatService) Messages(ctx context.Context, simulationID string, limit, offset int) ([]domain.Message, int, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}

	messages, err := s.messageRepo.ListBySession(ctx, simulationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.messageRepo.Count(ctx, simulationID)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// Recent returns the most recent completed messages. The in-process queue
// is preferred for freshness; after a restart it is empty, so the durable
// store backfills.
func (s *ChatService) Recent(ctx context.Context, simulationID string, limit int) ([]domain.Message, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	messages := s.queues.Recent(simulationID, limit)
	if len(messages) > 0 {
		return messages, nil
	}
	return s.messageRepo.Recent(ctx, simulationID, limit)
}

// QueueStats returns the queue depths for a simulation
func (s *ChatService) QueueStats(ctx context.Context, simulationID string) (*queue.Stats, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return nil, err
	}
	stats := s.queues.Stats(simulationID)
	return &stats, nil
}

// Summary holds a generated conversation TLDR
type Summary struct {
	SimulationID string `json:"simulation_id"`
	Format       string `json:"format"`
	Content      string `json:"content"`
	MessageCount int    `json:"message_count"`
	Cached       bool   `json:"cached"`
}

// TLDR generates (or serves from cache) a conversation summary. The cache
// key includes the message count, so new messages naturally invalidate it.
func (s *ChatService) TLDR(ctx context.Context, simulationID string, format llm.SummaryFormat) (*Summary, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return nil, err
	}
	if format != llm.SummaryVideo {
		format = llm.SummaryText
	}

	count, err := s.messageRepo.Count(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &Summary{
			SimulationID: simulationID,
			Format:       string(format),
			Content:      "No conversation to summarize yet.",
		}, nil
	}

	if s.summaries != nil {
		if cached, ok, _ := s.summaries.Get(ctx, simulationID, string(format), count); ok {
			return &Summary{
				SimulationID: simulationID,
				Format:       string(format),
				Content:      cached,
				MessageCount: count,
				Cached:       true,
			}, nil
		}
	}

	messages, err := s.messageRepo.ListBySession(ctx, simulationID, count, 0)
	if err != nil {
		return nil, err
	}

	provider, err := s.router.GetProvider(s.provider)
	if err != nil {
		return nil, err
	}

	maxTokens := summaryMaxTokensText
	if format == llm.SummaryVideo {
		maxTokens = summaryMaxTokensVideo
	}

	resp, err := provider.Chat(ctx, llm.Request{
		Messages:    llm.BuildSummaryMessages(messages, format),
		Temperature: s.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}

	if s.summaries != nil {
		if err := s.summaries.Set(ctx, simulationID, string(format), count, resp.Content); err != nil {
			log.Warn().Err(err).Str("simulation_id", simulationID).Msg("failed to cache summary")
		}
	}

	return &Summary{
		SimulationID: simulationID,
		Format:       string(format),
		Content:      resp.Content,
		MessageCount: count,
	}, nil
}

// ClearMessages wipes a simulation's history, queue and cached summaries
func (s *ChatService) ClearMessages(ctx context.Context, simulationID string) (int, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return 0, err
	}

	deleted, err := s.messageRepo.DeleteBySession(ctx, simulationID)
	if err != nil {
		return 0, err
	}
	s.queues.Drop(simulationID)
	if s.summaries != nil {
		if err := s.summaries.Invalidate(ctx, simulationID); err != nil {
			log.Warn().Err(err).Str("simulation_id", simulationID).Msg("failed to invalidate summaries")
		}
	}
	return deleted, nil
}
