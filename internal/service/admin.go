package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/queue"
)

// AdminService implements system-wide maintenance operations. These walk
// the repositories directly; a turn loop whose simulation disappears under
// it exits at its next status read.
type AdminService struct {
	personaRepo domain.PersonaRepository
	groupRepo   domain.GroupRepository
	simRepo     domain.SimulationRepository
	messageRepo domain.MessageRepository
	queues      *queue.Manager
}

// NewAdminService creates a new admin service
func NewAdminService(
	personaRepo domain.PersonaRepository,
	groupRepo domain.GroupRepository,
	simRepo domain.SimulationRepository,
	messageRepo domain.MessageRepository,
	queues *queue.Manager,
) *AdminService {
	return &AdminService{
		personaRepo: personaRepo,
		groupRepo:   groupRepo,
		simRepo:     simRepo,
		messageRepo: messageRepo,
		queues:      queues,
	}
}

// SystemStats holds entity counts across the whole system
type SystemStats struct {
	Personas    int `json:"personas"`
	Groups      int `json:"groups"`
	Simulations int `json:"simulations"`
	Messages    int `json:"messages"`
}

// ClearedCounts reports how many entities a clear operation removed
type ClearedCounts struct {
	Personas    int `json:"personas,omitempty"`
	Memories    int `json:"memories,omitempty"`
	Groups      int `json:"groups,omitempty"`
	Simulations int `json:"simulations"`
	Messages    int `json:"messages"`
}

// Stats counts every entity in the system
func (s *AdminService) Stats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}

	var err error
	if stats.Personas, err = s.personaRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count personas: %w", err)
	}

	groups, err := s.groupRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	stats.Groups = len(groups)

	sims, err := s.simRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	stats.Simulations = len(sims)

	for _, sim := range sims {
		count, err := s.messageRepo.Count(ctx, sim.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count messages for %s: %w", sim.ID, err)
		}
		stats.Messages += count
	}

	return stats, nil
}

// ClearMessages deletes every simulation and its messages, keeping
// personas and groups
func (s *AdminService) ClearMessages(ctx context.Context) (*ClearedCounts, error) {
	counts := &ClearedCounts{}
	if err := s.clearSimulations(ctx, counts); err != nil {
		return nil, err
	}

	log.Info().
		Int("simulations", counts.Simulations).
		Int("messages", counts.Messages).
		Msg("cleared simulations and messages")
	return counts, nil
}

// ClearAll wipes the whole system: messages, simulations, groups,
// personas and their memories. There is no undo.
func (s *AdminService) ClearAll(ctx context.Context) (*ClearedCounts, error) {
	counts := &ClearedCounts{}
	if err := s.clearSimulations(ctx, counts); err != nil {
		return nil, err
	}

	groups, err := s.groupRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	for _, group := range groups {
		if err := s.groupRepo.Delete(ctx, group.ID); err != nil {
			return nil, fmt.Errorf("failed to delete group %s: %w", group.ID, err)
		}
		counts.Groups++
	}

	personas, err := s.personaRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	for _, persona := range personas {
		// memories go with their persona
		if memory, err := s.personaRepo.GetMemory(ctx, persona.ID); err == nil {
			counts.Memories += len(memory.ShortTerm) + len(memory.LongTerm)
		}
		if err := s.personaRepo.Delete(ctx, persona.ID); err != nil {
			return nil, fmt.Errorf("failed to delete persona %s: %w", persona.ID, err)
		}
		counts.Personas++
	}

	log.Info().
		Int("personas", counts.Personas).
		Int("groups", counts.Groups).
		Int("simulations", counts.Simulations).
		Int("messages", counts.Messages).
		Msg("cleared all data")
	return counts, nil
}

// clearSimulations removes every simulation, its messages and its queue
func (s *AdminService) clearSimulations(ctx context.Context, counts *ClearedCounts) error {
	sims, err := s.simRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list simulations: %w", err)
	}

	for _, sim := range sims {
		deleted, err := s.messageRepo.DeleteBySession(ctx, sim.ID)
		if err != nil {
			return fmt.Errorf("failed to delete messages for %s: %w", sim.ID, err)
		}
		counts.Messages += deleted

		if err := s.simRepo.Delete(ctx, sim.ID); err != nil {
			return fmt.Errorf("failed to delete simulation %s: %w", sim.ID, err)
		}
		s.queues.Drop(sim.ID)
		counts.Simulations++
	}
	return nil
}
