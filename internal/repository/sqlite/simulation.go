package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chatsim/chatsim/internal/domain"
)

// SimulationRepository implements domain.SimulationRepository on the
// embedded store. Persona ids are stored as a JSON array column.
type SimulationRepository struct {
	db *sql.DB
}

// NewSimulationRepository creates a new simulation repository
func NewSimulationRepository(db *DB) *SimulationRepository {
	return &SimulationRepository{db: db.Conn}
}

// Create inserts a new simulation
func (r *SimulationRepository) Create(ctx context.Context, sim *domain.Simulation) error {
	personaIDs, err := json.Marshal(sim.PersonaIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal persona ids: %w", err)
	}

	query := `
		INSERT INTO simulations
			(id, group_id, name, description, persona_ids, simulation_type, max_turns,
			 turn_delay, allow_interruption, status, message_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		sim.ID,
		sim.GroupID,
		sim.Name,
		sim.Description,
		string(personaIDs),
		string(sim.Config.Type),
		sim.Config.MaxTurns,
		sim.Config.TurnDelay,
		sim.Config.AllowInterruption,
		string(sim.Status),
		sim.MessageCount,
		sim.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	return nil
}

const simulationColumns = `
	id, group_id, name, description, persona_ids, simulation_type, max_turns,
	turn_delay, allow_interruption, status, message_count, created_at, started_at, completed_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (*domain.Simulation, error) {
	var s domain.Simulation
	var personaIDs string
	err := row.Scan(
		&s.ID,
		&s.GroupID,
		&s.Name,
		&s.Description,
		&personaIDs,
		&s.Config.Type,
		&s.Config.MaxTurns,
		&s.Config.TurnDelay,
		&s.Config.AllowInterruption,
		&s.Status,
		&s.MessageCount,
		&s.CreatedAt,
		&s.StartedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(personaIDs), &s.PersonaIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal persona ids: %w", err)
	}
	return &s, nil
}

// Get retrieves a simulation by id
func (r *SimulationRepository) Get(ctx context.Context, id string) (*domain.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE id = ?`
	s, err := scanSimulation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	return s, nil
}

// List retrieves all simulations, newest first
func (r *SimulationRepository) List(ctx context.Context) ([]domain.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer rows.Close()

	var sims []domain.Simulation
	for rows.Next() {
		s, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		sims = append(sims, *s)
	}
	return sims, rows.Err()
}

// Update persists simulation field changes
func (r *SimulationRepository) Update(ctx context.Context, sim *domain.Simulation) error {
	query := `
		UPDATE simulations
		SET name = ?, description = ?, simulation_type = ?, max_turns = ?,
		    turn_delay = ?, allow_interruption = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		sim.Name,
		sim.Description,
		string(sim.Config.Type),
		sim.Config.MaxTurns,
		sim.Config.TurnDelay,
		sim.Config.AllowInterruption,
		sim.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update simulation: %w", err)
	}
	return checkAffected(res)
}

// Delete removes a simulation
func (r *SimulationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	return checkAffected(res)
}

// GetStatus reads the current status straight from the store
func (r *SimulationRepository) GetStatus(ctx context.Context, id string) (domain.SimulationStatus, error) {
	var status domain.SimulationStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM simulations WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to get simulation status: %w", err)
	}
	return status, nil
}

// SetStatus updates the status and optionally the lifecycle timestamps
func (r *SimulationRepository) SetStatus(ctx context.Context, id string, status domain.SimulationStatus, startedAt, completedAt *time.Time) error {
	query := `
		UPDATE simulations
		SET status = ?,
		    started_at = COALESCE(?, started_at),
		    completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, string(status), startedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to set simulation status: %w", err)
	}
	return checkAffected(res)
}

// IncrementMessageCount bumps the persisted message counter
func (r *SimulationRepository) IncrementMessageCount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE simulations SET message_count = message_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment message count: %w", err)
	}
	return checkAffected(res)
}
