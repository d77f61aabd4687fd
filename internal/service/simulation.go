package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
	"github.com/chatsim/chatsim/internal/queue"
)

var (
	// ErrAlreadyRunning indicates a start on a simulation with a live turn loop
	ErrAlreadyRunning = errors.New("simulation is already running")

	// ErrNotRunning indicates a pause on a simulation that is not running
	ErrNotRunning = errors.New("simulation is not running")

	// ErrFinished indicates an operation on a completed or failed simulation
	ErrFinished = errors.New("simulation already finished")

	// ErrNoPersonas indicates a simulation create without any personas
	ErrNoPersonas = errors.New("at least one persona is required")
)

// a persona's own utterances enter short-term memory at this importance
const turnMemoryImportance = 0.5

// ProviderRouter resolves LLM providers by name
type ProviderRouter interface {
	GetProvider(name string) (llm.Provider, error)
}

// SimulationSettings holds scheduler tuning shared by all simulations
type SimulationSettings struct {
	DefaultMaxTurns  int
	DefaultTurnDelay float64
	HistoryWindow    int
	Provider         string
	Temperature      float64
	MaxTokens        int
}

// SimulationService owns the simulation lifecycle and the per-simulation
// turn loops. The durable store is the single arbiter of status: the loop
// re-reads it between turns, so a pause or stop lands at the next turn
// boundary even if the in-memory task handle is gone.
type SimulationService struct {
	simRepo     domain.SimulationRepository
	personaRepo domain.PersonaRepository
	messageRepo domain.MessageRepository
	groupRepo   domain.GroupRepository
	queues      *queue.Manager
	router      ProviderRouter
	personas    *PersonaService
	settings    SimulationSettings

	mu    sync.Mutex
	tasks map[string]context.CancelFunc
	wg    sync.WaitGroup
}

// NewSimulationService creates a new simulation service
func NewSimulationService(
	simRepo domain.SimulationRepository,
	personaRepo domain.PersonaRepository,
	messageRepo domain.MessageRepository,
	groupRepo domain.GroupRepository,
	queues *queue.Manager,
	router ProviderRouter,
	personas *PersonaService,
	settings SimulationSettings,
) *SimulationService {
	return &SimulationService{
		simRepo:     simRepo,
		personaRepo: personaRepo,
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		queues:      queues,
		router:      router,
		personas:    personas,
		settings:    settings,
		tasks:       make(map[string]context.CancelFunc),
	}
}

// SimulationCreate carries input for a new simulation
type SimulationCreate struct {
	Name        string                  `json:"name" validate:"required,min=1,max=200"`
	Description string                  `json:"description" validate:"max=2000"`
	GroupID     *string                 `json:"group_id,omitempty"`
	PersonaIDs  []string                `json:"persona_ids"`
	Config      domain.SimulationConfig `json:"config"`
}

// Create creates a new simulation. When a group id is given and no explicit
// persona list, the group's membership is used.
func (s *SimulationService) Create(ctx context.Context, input SimulationCreate) (*domain.Simulation, error) {
	personaIDs := input.PersonaIDs
	if len(personaIDs) == 0 && input.GroupID != nil {
		group, err := s.groupRepo.Get(ctx, *input.GroupID)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", *input.GroupID, err)
		}
		personaIDs = group.PersonaIDs
	}
	if len(personaIDs) == 0 {
		return nil, ErrNoPersonas
	}

	for _, personaID := range personaIDs {
		if _, err := s.personaRepo.Get(ctx, personaID); err != nil {
			return nil, fmt.Errorf("persona %s: %w", personaID, err)
		}
	}

	cfg := input.Config
	if cfg.Type == "" {
		cfg.Type = domain.SimulationTypeChat
	}
	if cfg.TurnDelay <= 0 {
		cfg.TurnDelay = s.settings.DefaultTurnDelay
	}

	sim := &domain.Simulation{
		ID:          domain.NewID("sim"),
		GroupID:     input.GroupID,
		Name:        input.Name,
		Description: input.Description,
		PersonaIDs:  personaIDs,
		Config:      cfg,
		Status:      domain.StatusCreated,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.simRepo.Create(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Get retrieves a simulation by id
func (s *SimulationService) Get(ctx context.Context, id string) (*domain.Simulation, error) {
	return s.simRepo.Get(ctx, id)
}

// List retrieves all simulations
func (s *SimulationService) List(ctx context.Context) ([]domain.Simulation, error) {
	return s.simRepo.List(ctx)
}

// Update applies a partial update to a simulation
func (s *SimulationService) Update(ctx context.Context, id string, input domain.SimulationUpdate) (*domain.Simulation, error) {
	sim, err := s.simRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		sim.Name = *input.Name
	}
	if input.Description != nil {
		sim.Description = *input.Description
	}
	if input.Config != nil {
		sim.Config = *input.Config
	}

	if err := s.simRepo.Update(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Delete stops a simulation's turn loop if any, then removes the simulation,
// its messages and its queue.
func (s *SimulationService) Delete(ctx context.Context, id string) error {
	s.cancelTask(id)

	if _, err := s.messageRepo.DeleteBySession(ctx, id); err != nil {
		return err
	}
	if err := s.simRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.queues.Drop(id)
	return nil
}

// Start launches the turn loop for a simulation. Accepted from created and
// paused. A simulation stuck in running without a live task (left over from
// a process restart) is also accepted and resumed.
func (s *SimulationService) Start(ctx context.Context, id string) (*domain.Simulation, error) {
	sim, err := s.simRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sim.Status.Terminal() {
		return nil, ErrFinished
	}
	if sim.Status == domain.StatusRunning && s.hasTask(id) {
		return nil, ErrAlreadyRunning
	}

	now := time.Now().UTC()
	var startedAt *time.Time
	if sim.StartedAt == nil {
		startedAt = &now
		sim.StartedAt = &now
	}
	if err := s.simRepo.SetStatus(ctx, id, domain.StatusRunning, startedAt, nil); err != nil {
		return nil, err
	}
	sim.Status = domain.StatusRunning

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.tasks[id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.clearTask(id)
		s.run(runCtx, sim)
	}()

	log.Info().Str("simulation_id", id).Int("personas", len(sim.PersonaIDs)).Msg("simulation started")
	return sim, nil
}

// Pause suspends a running simulation at the next turn boundary
func (s *SimulationService) Pause(ctx context.Context, id string) (*domain.Simulation, error) {
	sim, err := s.simRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sim.Status.Terminal() {
		return nil, ErrFinished
	}
	if sim.Status != domain.StatusRunning {
		return nil, ErrNotRunning
	}

	if err := s.simRepo.SetStatus(ctx, id, domain.StatusPaused, nil, nil); err != nil {
		return nil, err
	}
	s.cancelTask(id)
	sim.Status = domain.StatusPaused

	log.Info().Str("simulation_id", id).Msg("simulation paused")
	return sim, nil
}

// Stop ends a simulation. A turn already in flight may still persist its
// message; the status flip guarantees no new turn begins.
func (s *SimulationService) Stop(ctx context.Context, id string) (*domain.Simulation, error) {
	sim, err := s.simRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sim.Status.Terminal() {
		return nil, ErrFinished
	}

	now := time.Now().UTC()
	if err := s.simRepo.SetStatus(ctx, id, domain.StatusCompleted, nil, &now); err != nil {
		return nil, err
	}
	s.cancelTask(id)
	sim.Status = domain.StatusCompleted
	sim.CompletedAt = &now

	log.Info().Str("simulation_id", id).Msg("simulation stopped")
	return sim, nil
}

// Shutdown cancels all turn loops and waits for them to drain
func (s *SimulationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.tasks {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maxTurnsFor resolves the turn budget. A lone persona always speaks
// exactly once, even with a configured max_turns; otherwise an explicit
// value wins and the default applies last.
func (s *SimulationService) maxTurnsFor(sim *domain.Simulation) int {
	if len(sim.PersonaIDs) < 2 {
		return 1
	}
	if sim.Config.MaxTurns > 0 {
		return sim.Config.MaxTurns
	}
	return s.settings.DefaultMaxTurns
}

// run drives the round-robin turn loop until the turn budget is spent, the
// context is canceled, or the stored status leaves running.
func (s *SimulationService) run(ctx context.Context, sim *domain.Simulation) {
	maxTurns := s.maxTurnsFor(sim)
	delay := sim.Config.Delay()

	for turn := 0; turn < maxTurns; turn++ {
		status, err := s.simRepo.GetStatus(ctx, sim.ID)
		if err != nil {
			log.Error().Err(err).Str("simulation_id", sim.ID).Msg("failed to read simulation status")
			return
		}
		if status != domain.StatusRunning {
			return
		}

		// skip the delay before the very first turn, unless it is long
		// enough that the caller clearly wants a leading pause
		if turn > 0 || delay > 500*time.Millisecond {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		personaID := sim.PersonaIDs[turn%len(sim.PersonaIDs)]
		persona, err := s.personaRepo.Get(ctx, personaID)
		if err != nil {
			log.Warn().Err(err).Str("simulation_id", sim.ID).Str("persona_id", personaID).Msg("persona unavailable, skipping turn")
			continue
		}
		if !persona.IsActive {
			continue
		}

		if err := s.takeTurn(ctx, sim, persona); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("simulation_id", sim.ID).Str("persona_id", personaID).Msg("turn generation failed, skipping")
		}
	}

	s.finish(sim)
}

// finish records the terminal state once the turn budget is spent. A lone
// persona pauses instead, so the conversation can be resumed with more
// turns later. The stored status is re-checked so a concurrent stop wins.
func (s *SimulationService) finish(sim *domain.Simulation) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := s.simRepo.GetStatus(ctx, sim.ID)
	if err != nil || status != domain.StatusRunning {
		return
	}

	if len(sim.PersonaIDs) < 2 {
		if err := s.simRepo.SetStatus(ctx, sim.ID, domain.StatusPaused, nil, nil); err != nil {
			log.Error().Err(err).Str("simulation_id", sim.ID).Msg("failed to pause simulation")
		}
		return
	}

	now := time.Now().UTC()
	if err := s.simRepo.SetStatus(ctx, sim.ID, domain.StatusCompleted, nil, &now); err != nil {
		log.Error().Err(err).Str("simulation_id", sim.ID).Msg("failed to complete simulation")
		return
	}
	log.Info().Str("simulation_id", sim.ID).Msg("simulation completed")
}

// takeTurn generates one persona utterance: build the prompt from recent
// history, call the model, persist the message, then mirror it into the
// session queue. Persist-before-enqueue keeps the durable store ahead of
// the transient one.
func (s *SimulationService) takeTurn(ctx context.Context, sim *domain.Simulation, persona *domain.Persona) error {
	history, err := s.messageRepo.Recent(ctx, sim.ID, s.settings.HistoryWindow)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	provider, err := s.router.GetProvider(s.settings.Provider)
	if err != nil {
		return err
	}

	resp, err := provider.Chat(ctx, llm.Request{
		Messages:    llm.BuildPersonaMessages(persona, history, sim.Description),
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	msg := &domain.Message{
		ID:        domain.NewID("msg"),
		SessionID: sim.ID,
		GroupID:   sim.GroupID,
		PersonaID: &persona.ID,
		Content:   resp.Content,
		Role:      domain.RolePersona,
		Status:    domain.MessageCompleted,
		Timestamp: time.Now().UTC(),
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}
	if err := s.simRepo.IncrementMessageCount(ctx, sim.ID); err != nil {
		log.Warn().Err(err).Str("simulation_id", sim.ID).Msg("failed to bump message count")
	}
	// generated messages are final on arrival; they enter the queue as
	// completed and are readable immediately
	s.queues.AddCompleted(sim.ID, *msg)

	if err := s.personas.AddMemory(ctx, persona.ID, domain.MemoryShortTerm, resp.Content, turnMemoryImportance); err != nil {
		log.Warn().Err(err).Str("persona_id", persona.ID).Msg("failed to record memory")
	}

	log.Debug().
		Str("simulation_id", sim.ID).
		Str("persona_id", persona.ID).
		Int("tokens", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("turn generated")
	return nil
}

func (s *SimulationService) hasTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

func (s *SimulationService) cancelTask(id string) {
	s.mu.Lock()
	cancel, ok := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *SimulationService) clearTask(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}
