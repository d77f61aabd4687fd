package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chatsim/chatsim/internal/domain"
)

// GroupService handles persona group operations
type GroupService struct {
	groupRepo   domain.GroupRepository
	personaRepo domain.PersonaRepository
}

// NewGroupService creates a new group service
func NewGroupService(groupRepo domain.GroupRepository, personaRepo domain.PersonaRepository) *GroupService {
	return &GroupService{
		groupRepo:   groupRepo,
		personaRepo: personaRepo,
	}
}

// GroupCreate carries input for a new group
type GroupCreate struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"max=2000"`
	PersonaIDs  []string `json:"persona_ids"`
}

// Create creates a new group after verifying every member persona exists
func (s *GroupService) Create(ctx context.Context, input GroupCreate) (*domain.Group, error) {
	for _, personaID := range input.PersonaIDs {
		if _, err := s.personaRepo.Get(ctx, personaID); err != nil {
			return nil, fmt.Errorf("persona %s: %w", personaID, err)
		}
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:          domain.NewID("group"),
		Name:        input.Name,
		Description: input.Description,
		PersonaIDs:  input.PersonaIDs,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Get retrieves a group by id
func (s *GroupService) Get(ctx context.Context, id string) (*domain.Group, error) {
	return s.groupRepo.Get(ctx, id)
}

// List retrieves groups, optionally only active ones
func (s *GroupService) List(ctx context.Context, activeOnly bool) ([]domain.Group, error) {
	return s.groupRepo.List(ctx, activeOnly)
}

// Update applies a partial update to a group
func (s *GroupService) Update(ctx context.Context, id string, input domain.GroupUpdate) (*domain.Group, error) {
	group, err := s.groupRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		group.Name = *input.Name
	}
	if input.Description != nil {
		group.Description = *input.Description
	}
	if input.IsActive != nil {
		group.IsActive = *input.IsActive
	}
	group.UpdatedAt = time.Now().UTC()

	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Delete removes a group
func (s *GroupService) Delete(ctx context.Context, id string) error {
	return s.groupRepo.Delete(ctx, id)
}

// AddPersona adds a persona to a group
func (s *GroupService) AddPersona(ctx context.Context, groupID, personaID string) (*domain.Group, error) {
	if _, err := s.personaRepo.Get(ctx, personaID); err != nil {
		return nil, fmt.Errorf("persona %s: %w", personaID, err)
	}
	if _, err := s.groupRepo.Get(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.groupRepo.AddPersona(ctx, groupID, personaID); err != nil {
		return nil, err
	}
	return s.groupRepo.Get(ctx, groupID)
}

// RemovePersona removes a persona from a group
func (s *GroupService) RemovePersona(ctx context.Context, groupID, personaID string) (*domain.Group, error) {
	if err := s.groupRepo.RemovePersona(ctx, groupID, personaID); err != nil {
		return nil, err
	}
	return s.groupRepo.Get(ctx, groupID)
}
