package domain

import (
	"context"
	"time"
)

// PersonaType distinguishes invented personas from ones modeled on real people
type PersonaType string

const (
	PersonaTypeUser       PersonaType = "user"
	PersonaTypeRealPeople PersonaType = "real_people"
)

// MemoryKind selects the memory tier an entry belongs to
type MemoryKind string

const (
	MemoryShortTerm MemoryKind = "short_term"
	MemoryLongTerm  MemoryKind = "long_term"
)

// MemoryEntry is a single timestamped, importance-scored memory
type MemoryEntry struct {
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
}

// PersonaMemory holds the two memory tiers of a persona.
// Short-term is a bounded recency window; long-term is durable.
type PersonaMemory struct {
	ShortTerm []MemoryEntry `json:"short_term"`
	LongTerm  []MemoryEntry `json:"long_term"`
}

// AddShortTerm appends an entry to the short-term tier
func (m *PersonaMemory) AddShortTerm(content string, importance float64) {
	m.ShortTerm = append(m.ShortTerm, MemoryEntry{
		Content:    content,
		Importance: importance,
		Timestamp:  time.Now().UTC(),
	})
}

// AddLongTerm appends an entry to the long-term tier
func (m *PersonaMemory) AddLongTerm(content string, importance float64) {
	m.LongTerm = append(m.LongTerm, MemoryEntry{
		Content:    content,
		Importance: importance,
		Timestamp:  time.Now().UTC(),
	})
}

// Consolidate promotes short-term entries at or above threshold into
// long-term, then truncates short-term to the most recent limit entries.
// Promoted entries are copied, not moved; entries below the threshold that
// age out of the window are discarded. No-op while short-term fits the limit.
func (m *PersonaMemory) Consolidate(limit int, threshold float64) {
	if len(m.ShortTerm) <= limit {
		return
	}
	for _, entry := range m.ShortTerm {
		if entry.Importance >= threshold {
			m.LongTerm = append(m.LongTerm, entry)
		}
	}
	m.ShortTerm = append([]MemoryEntry(nil), m.ShortTerm[len(m.ShortTerm)-limit:]...)
}

// Persona is a named, prompt-defined conversational identity
type Persona struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         PersonaType   `json:"persona_type"`
	SystemPrompt string        `json:"system_prompt"`
	Description  string        `json:"description,omitempty"`
	IsActive     bool          `json:"is_active"`
	Memory       PersonaMemory `json:"memory"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PersonaUpdate carries optional field updates for a persona
type PersonaUpdate struct {
	Name         *string      `json:"name,omitempty"`
	Type         *PersonaType `json:"persona_type,omitempty"`
	SystemPrompt *string      `json:"system_prompt,omitempty"`
	Description  *string      `json:"description,omitempty"`
	IsActive     *bool        `json:"is_active,omitempty"`
}

// PersonaRepository defines the interface for persona storage
type PersonaRepository interface {
	Create(ctx context.Context, persona *Persona) error
	Get(ctx context.Context, id string) (*Persona, error)
	GetByName(ctx context.Context, name string) (*Persona, error)
	List(ctx context.Context, activeOnly bool) ([]Persona, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, persona *Persona) error
	Delete(ctx context.Context, id string) error

	// Memory is owned by its persona; deleting the persona cascades.
	AddMemory(ctx context.Context, personaID string, kind MemoryKind, entry MemoryEntry) error
	GetMemory(ctx context.Context, personaID string) (*PersonaMemory, error)
	ReplaceMemory(ctx context.Context, personaID string, memory *PersonaMemory) error
}
