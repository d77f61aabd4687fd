package domain

import (
	"context"
	"time"
)

// SimulationType selects the conversation style of a simulation
type SimulationType string

const (
	SimulationTypeChat  SimulationType = "chat"
	SimulationTypeViews SimulationType = "views"
)

// SimulationStatus is the lifecycle state of a simulation.
// Transitions: created -> running -> {paused, completed, failed},
// paused -> running. completed and failed are terminal.
type SimulationStatus string

const (
	StatusCreated   SimulationStatus = "created"
	StatusRunning   SimulationStatus = "running"
	StatusPaused    SimulationStatus = "paused"
	StatusCompleted SimulationStatus = "completed"
	StatusFailed    SimulationStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s
func (s SimulationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SimulationConfig holds per-simulation tuning.
// MaxTurns of zero means "use the default for the persona count".
type SimulationConfig struct {
	Type              SimulationType `json:"simulation_type"`
	MaxTurns          int            `json:"max_turns,omitempty"`
	TurnDelay         float64        `json:"turn_delay"`
	AllowInterruption bool           `json:"allow_user_interruption"`
}

// Delay returns the configured inter-turn delay as a duration
func (c SimulationConfig) Delay() time.Duration {
	return time.Duration(c.TurnDelay * float64(time.Second))
}

// Simulation is one running instance of a multi-persona conversation.
// PersonaIDs is never empty.
type Simulation struct {
	ID           string           `json:"id"`
	GroupID      *string          `json:"group_id,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	PersonaIDs   []string         `json:"persona_ids"`
	Config       SimulationConfig `json:"config"`
	Status       SimulationStatus `json:"status"`
	MessageCount int              `json:"message_count"`
	CreatedAt    time.Time        `json:"created_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// SimulationUpdate carries optional field updates for a simulation
type SimulationUpdate struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Config      *SimulationConfig `json:"config,omitempty"`
}

// SimulationRepository defines the interface for simulation storage.
// The durable store is the single arbiter of simulation status; in-memory
// task handles are auxiliary.
type SimulationRepository interface {
	Create(ctx context.Context, sim *Simulation) error
	Get(ctx context.Context, id string) (*Simulation, error)
	List(ctx context.Context) ([]Simulation, error)
	Update(ctx context.Context, sim *Simulation) error
	Delete(ctx context.Context, id string) error

	GetStatus(ctx context.Context, id string) (SimulationStatus, error)
	SetStatus(ctx context.Context, id string, status SimulationStatus, startedAt, completedAt *time.Time) error
	IncrementMessageCount(ctx context.Context, id string) error
}
