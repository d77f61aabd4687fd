package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SimulationRepository implements domain.SimulationRepository
type SimulationRepository struct {
	pool *pgxpool.Pool
}

// NewSimulationRepository creates a new simulation repository
func NewSimulationRepository(pool *pgxpool.Pool) *SimulationRepository {
	return &SimulationRepository{pool: pool}
}

// Create inserts a new simulation
func (r *SimulationRepository) Create(ctx context.Context, sim *domain.Simulation) error {
	query := `
		INSERT INTO simulations
			(id, group_id, name, description, persona_ids, simulation_type, max_turns,
			 turn_delay, allow_interruption, status, message_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		sim.ID,
		sim.GroupID,
		sim.Name,
		sim.Description,
		sim.PersonaIDs,
		sim.Config.Type,
		sim.Config.MaxTurns,
		sim.Config.TurnDelay,
		sim.Config.AllowInterruption,
		sim.Status,
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

func scanSimulation(row pgx.Row) (*domain.Simulation, error) {
	var s domain.Simulation
	err := row.Scan(
		&s.ID,
		&s.GroupID,
		&s.Name,
		&s.Description,
		&s.PersonaIDs,
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
	return &s, nil
}

// Get retrieves a simulation by id
func (r *SimulationRepository) Get(ctx context.Context, id string) (*domain.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE id = $1`
	s, err := scanSimulation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	return s, nil
}

// List retrieves all simulations, newest first
func (r *SimulationRepository) List(ctx context.Context) ([]domain.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
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
	return sims, nil
}

// Update persists simulation field changes
func (r *SimulationRepository) Update(ctx context.Context, sim *domain.Simulation) error {
	query := `
		UPDATE simulations
		SET name = $1, description = $2, simulation_type = $3, max_turns = $4,
		    turn_delay = $5, allow_interruption = $6
		WHERE id = $7
	`
	tag, err := r.pool.Exec(ctx, query,
		sim.Name,
		sim.Description,
		sim.Config.Type,
		sim.Config.MaxTurns,
		sim.Config.TurnDelay,
		sim.Config.AllowInterruption,
		sim.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update simulation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a simulation
func (r *SimulationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM simulations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetStatus reads the current status straight from the store. The turn loop
// calls this between turns so pause and stop take effect immediately.
func (r *SimulationRepository) GetStatus(ctx context.Context, id string) (domain.SimulationStatus, error) {
	var status domain.SimulationStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM simulations WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
		SET status = $1,
		    started_at = COALESCE($2, started_at),
		    completed_at = COALESCE($3, completed_at)
		WHERE id = $4
	`
	tag, err := r.pool.Exec(ctx, query, status, startedAt, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to set simulation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementMessageCount bumps the persisted message counter
func (r *SimulationRepository) IncrementMessageCount(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE simulations SET message_count = message_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment message count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
