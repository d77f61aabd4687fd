package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chatsim/chatsim/internal/domain"
)

// PersonaService handles persona lifecycle and memory operations
type PersonaService struct {
	personaRepo    domain.PersonaRepository
	maxPersonas    int
	shortTermLimit int
	promoteAbove   float64
}

// NewPersonaService creates a new persona service
func NewPersonaService(personaRepo domain.PersonaRepository, maxPersonas, shortTermLimit int, promoteThreshold float64) *PersonaService {
	return &PersonaService{
		personaRepo:    personaRepo,
		maxPersonas:    maxPersonas,
		shortTermLimit: shortTermLimit,
		promoteAbove:   promoteThreshold,
	}
}

// PersonaCreate carries input for a new persona
type PersonaCreate struct {
	Name         string             `json:"name" validate:"required,min=1,max=100"`
	Type         domain.PersonaType `json:"persona_type" validate:"omitempty,oneof=user real_people"`
	SystemPrompt string             `json:"system_prompt" validate:"required,min=1"`
	Description  string             `json:"description" validate:"max=2000"`
}

// Create creates a new persona. Names are unique case-insensitively and the
// configured persona cap is enforced.
func (s *PersonaService) Create(ctx context.Context, input PersonaCreate) (*domain.Persona, error) {
	count, err := s.personaRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count personas: %w", err)
	}
	if s.maxPersonas > 0 && count >= s.maxPersonas {
		return nil, domain.ErrPersonaLimit
	}

	if _, err := s.personaRepo.GetByName(ctx, input.Name); err == nil {
		return nil, domain.ErrDuplicateName
	}

	personaType := input.Type
	if personaType == "" {
		personaType = domain.PersonaTypeUser
	}

	now := time.Now().UTC()
	persona := &domain.Persona{
		ID:           domain.NewID("persona"),
		Name:         strings.TrimSpace(input.Name),
		Type:         personaType,
		SystemPrompt: input.SystemPrompt,
		Description:  input.Description,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.personaRepo.Create(ctx, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

// Get retrieves a persona with memory tiers
func (s *PersonaService) Get(ctx context.Context, id string) (*domain.Persona, error) {
	return s.personaRepo.Get(ctx, id)
}

// List retrieves personas, optionally only active ones
func (s *PersonaService) List(ctx context.Context, activeOnly bool) ([]domain.Persona, error) {
	return s.personaRepo.List(ctx, activeOnly)
}

// Update applies a partial update to a persona
func (s *PersonaService) Update(ctx context.Context, id string, input domain.PersonaUpdate) (*domain.Persona, error) {
	persona, err := s.personaRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && !strings.EqualFold(*input.Name, persona.Name) {
		if _, err := s.personaRepo.GetByName(ctx, *input.Name); err == nil {
			return nil, domain.ErrDuplicateName
		}
		persona.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		persona.Type = *input.Type
	}
	if input.SystemPrompt != nil {
		persona.SystemPrompt = *input.SystemPrompt
	}
	if input.Description != nil {
		persona.Description = *input.Description
	}
	if input.IsActive != nil {
		persona.IsActive = *input.IsActive
	}
	persona.UpdatedAt = time.Now().UTC()

	if err := s.personaRepo.Update(ctx, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

// Delete removes a persona
func (s *PersonaService) Delete(ctx context.Context, id string) error {
	return s.personaRepo.Delete(ctx, id)
}

// AddMemory records a memory entry for a persona and consolidates the
// short-term tier if it overflowed.
func (s *PersonaService) AddMemory(ctx context.Context, personaID string, kind domain.MemoryKind, content string, importance float64) error {
	entry := domain.MemoryEntry{
		Content:    content,
		Importance: importance,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.personaRepo.AddMemory(ctx, personaID, kind, entry); err != nil {
		return err
	}

	if kind == domain.MemoryShortTerm {
		return s.Consolidate(ctx, personaID)
	}
	return nil
}

// GetMemory returns both memory tiers for a persona
func (s *PersonaService) GetMemory(ctx context.Context, personaID string) (*domain.PersonaMemory, error) {
	return s.personaRepo.GetMemory(ctx, personaID)
}

// Consolidate promotes important short-term entries to long-term and trims
// short-term back to its window. No-op while the window fits.
func (s *PersonaService) Consolidate(ctx context.Context, personaID string) error {
	memory, err := s.personaRepo.GetMemory(ctx, personaID)
	if err != nil {
		return err
	}
	if len(memory.ShortTerm) <= s.shortTermLimit {
		return nil
	}

	memory.Consolidate(s.shortTermLimit, s.promoteAbove)
	return s.personaRepo.ReplaceMemory(ctx, personaID, memory)
}
