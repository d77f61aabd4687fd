package domain

import (
	"context"
	"time"
)

// Group is a named collection of personas. Purely organizational; the
// scheduler reads persona ids from the simulation directly.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PersonaIDs  []string  `json:"persona_ids"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupUpdate carries optional field updates for a group
type GroupUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// GroupRepository defines the interface for group storage
type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	Get(ctx context.Context, id string) (*Group, error)
	List(ctx context.Context, activeOnly bool) ([]Group, error)
	Update(ctx context.Context, group *Group) error
	Delete(ctx context.Context, id string) error
	AddPersona(ctx context.Context, groupID, personaID string) error
	RemovePersona(ctx context.Context, groupID, personaID string) error
}
