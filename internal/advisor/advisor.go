package advisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
)

// analysis windows are bounded; the advisor never reads a whole session
const transcriptWindow = 50

// the in-memory query log keeps this many entries; History serves a tail
const historyCap = 200

// Advice is one advisory response
type Advice struct {
	SimulationID string    `json:"simulation_id,omitempty"`
	Question     string    `json:"question"`
	Content      string    `json:"content"`
	Mode         string    `json:"mode"`
	Timestamp    time.Time `json:"timestamp"`
}

// Analysis is a structural breakdown of a session's conversation
type Analysis struct {
	SimulationID string         `json:"simulation_id"`
	MessageCount int            `json:"message_count"`
	Participants []string       `json:"participants"`
	PerSpeaker   map[string]int `json:"messages_per_speaker"`
	Summary      string         `json:"summary"`
	Mode         string         `json:"mode"`
}

// History is the advisor's recent query log
type History struct {
	Entries      []Advice `json:"history"`
	TotalQueries int      `json:"total_queries"`
	Mode         string   `json:"mode"`
}

// Status describes which advisory implementation is active
type Status struct {
	Mode         string `json:"mode"`
	TotalQueries int    `json:"total_queries"`
}

// Service fronts the advice provider with transcript assembly: it resolves
// persona ids to display names and bounds the analyzed window. It also
// keeps an in-memory log of the advice it has given.
type Service struct {
	provider    AdviceProvider
	messageRepo domain.MessageRepository
	personaRepo domain.PersonaRepository
	simRepo     domain.SimulationRepository

	mu      sync.Mutex
	history []Advice
	queries int
}

// NewService creates the advisor service
func NewService(
	provider AdviceProvider,
	messageRepo domain.MessageRepository,
	personaRepo domain.PersonaRepository,
	simRepo domain.SimulationRepository,
) *Service {
	return &Service{
		provider:    provider,
		messageRepo: messageRepo,
		personaRepo: personaRepo,
		simRepo:     simRepo,
	}
}

// Advice answers a question about a session's conversation
func (s *Service) Advice(ctx context.Context, simulationID, question string) (*Advice, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.Recent(ctx, simulationID, transcriptWindow)
	if err != nil {
		return nil, err
	}

	transcript := llm.FormatTranscript(messages, transcriptWindow, s.nameResolver(ctx))
	content, err := s.provider.Advise(ctx, question, transcript, len(messages))
	if err != nil {
		return nil, err
	}

	advice := &Advice{
		SimulationID: simulationID,
		Question:     question,
		Content:      content,
		Mode:         s.provider.Mode(),
		Timestamp:    time.Now().UTC(),
	}
	s.record(*advice)
	return advice, nil
}

// History returns the last limit advice exchanges and the total query count
func (s *Service) History(limit int) *History {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	start := len(s.history) - limit
	if start < 0 {
		start = 0
	}
	entries := make([]Advice, len(s.history)-start)
	copy(entries, s.history[start:])

	return &History{
		Entries:      entries,
		TotalQueries: s.queries,
		Mode:         s.provider.Mode(),
	}
}

// Status reports which advisory implementation is serving requests
func (s *Service) Status() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Status{
		Mode:         s.provider.Mode(),
		TotalQueries: s.queries,
	}
}

func (s *Service) record(advice Advice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.history = append(s.history, advice)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// Analyze breaks down a session's conversation and stores the generated
// summary in the advisor's long-term memory.
func (s *Service) Analyze(ctx context.Context, simulationID string) (*Analysis, error) {
	if _, err := s.simRepo.Get(ctx, simulationID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.Recent(ctx, simulationID, transcriptWindow)
	if err != nil {
		return nil, err
	}

	nameFor := s.nameResolver(ctx)
	perSpeaker := make(map[string]int)
	var participants []string
	for _, msg := range messages {
		speaker := "User"
		if msg.PersonaID != nil {
			speaker = nameFor(*msg.PersonaID)
		} else if msg.Role == domain.RoleSystem {
			speaker = "System"
		}
		if perSpeaker[speaker] == 0 {
			participants = append(participants, speaker)
		}
		perSpeaker[speaker]++
	}

	transcript := llm.FormatTranscript(messages, transcriptWindow, nameFor)
	summary, err := s.provider.Advise(ctx,
		"Summarize this conversation in exactly 2 sentences.",
		transcript, len(messages))
	if err != nil {
		return nil, err
	}

	if summary != apologyMessage {
		insight := "Session " + simulationID + ": " + summary
		if err := s.provider.StoreInsight(ctx, insight, 0.8); err != nil {
			log.Warn().Err(err).Str("simulation_id", simulationID).Msg("failed to store analysis insight")
		}
	}

	return &Analysis{
		SimulationID: simulationID,
		MessageCount: len(messages),
		Participants: participants,
		PerSpeaker:   perSpeaker,
		Summary:      summary,
		Mode:         s.provider.Mode(),
	}, nil
}

// MemoryStats reports the advisor's memory tier sizes
func (s *Service) MemoryStats(ctx context.Context) (*MemoryStats, error) {
	return s.provider.MemoryStats(ctx)
}

// Memory returns the advisor's memory content
func (s *Service) Memory(ctx context.Context) (*domain.PersonaMemory, error) {
	return s.provider.MemorySnapshot(ctx)
}

// nameResolver maps persona ids to display names, falling back to the id
// when the persona is gone.
func (s *Service) nameResolver(ctx context.Context) func(string) string {
	cache := make(map[string]string)
	return func(id string) string {
		if name, ok := cache[id]; ok {
			return name
		}
		name := id
		if persona, err := s.personaRepo.Get(ctx, id); err == nil {
			name = persona.Name
		}
		cache[id] = name
		return name
	}
}
