package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PersonaRepository implements domain.PersonaRepository
type PersonaRepository struct {
	pool *pgxpool.Pool
}

// NewPersonaRepository creates a new persona repository
func NewPersonaRepository(pool *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{pool: pool}
}

// Create inserts a new persona
func (r *PersonaRepository) Create(ctx context.Context, persona *domain.Persona) error {
	query := `
		INSERT INTO personas (id, name, persona_type, system_prompt, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		persona.ID,
		persona.Name,
		persona.Type,
		persona.SystemPrompt,
		persona.Description,
		persona.IsActive,
		persona.CreatedAt,
		persona.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to create persona: %w", err)
	}
	return nil
}

// Get retrieves a persona with its memory tiers
func (r *PersonaRepository) Get(ctx context.Context, id string) (*domain.Persona, error) {
	query := `
		SELECT id, name, persona_type, system_prompt, description, is_active, created_at, updated_at
		FROM personas
		WHERE id = $1
	`
	var p domain.Persona
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&p.SystemPrompt,
		&p.Description,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}

	memory, err := r.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Memory = *memory

	return &p, nil
}

// GetByName retrieves a persona by case-insensitive name
func (r *PersonaRepository) GetByName(ctx context.Context, name string) (*domain.Persona, error) {
	query := `SELECT id FROM personas WHERE LOWER(name) = LOWER($1)`
	var id string
	err := r.pool.QueryRow(ctx, query, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get persona by name: %w", err)
	}
	return r.Get(ctx, id)
}

// List retrieves personas, optionally only active ones. Memory tiers are
// not loaded; use Get for a full persona.
func (r *PersonaRepository) List(ctx context.Context, activeOnly bool) ([]domain.Persona, error) {
	query := `
		SELECT id, name, persona_type, system_prompt, description, is_active, created_at, updated_at
		FROM personas
	`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var personas []domain.Persona
	for rows.Next() {
		var p domain.Persona
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Type,
			&p.SystemPrompt,
			&p.Description,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, p)
	}
	return personas, nil
}

// Count returns the total number of personas
func (r *PersonaRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM personas`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count personas: %w", err)
	}
	return count, nil
}

// Update persists persona field changes
func (r *PersonaRepository) Update(ctx context.Context, persona *domain.Persona) error {
	query := `
		UPDATE personas
		SET name = $1, persona_type = $2, system_prompt = $3, description = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`
	tag, err := r.pool.Exec(ctx, query,
		persona.Name,
		persona.Type,
		persona.SystemPrompt,
		persona.Description,
		persona.IsActive,
		persona.UpdatedAt,
		persona.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to update persona: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a persona and, via cascade, its memories
func (r *PersonaRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddMemory appends one memory entry for a persona
func (r *PersonaRepository) AddMemory(ctx context.Context, personaID string, kind domain.MemoryKind, entry domain.MemoryEntry) error {
	query := `
		INSERT INTO persona_memories (persona_id, kind, content, importance, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, query, personaID, kind, entry.Content, entry.Importance, ts)
	if err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}
	return nil
}

// GetMemory loads both memory tiers for a persona in chronological order
func (r *PersonaRepository) GetMemory(ctx context.Context, personaID string) (*domain.PersonaMemory, error) {
	query := `
		SELECT kind, content, importance, created_at
		FROM persona_memories
		WHERE persona_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, personaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	defer rows.Close()

	var memory domain.PersonaMemory
	for rows.Next() {
		var kind domain.MemoryKind
		var entry domain.MemoryEntry
		if err := rows.Scan(&kind, &entry.Content, &entry.Importance, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		if kind == domain.MemoryLongTerm {
			memory.LongTerm = append(memory.LongTerm, entry)
		} else {
			memory.ShortTerm = append(memory.ShortTerm, entry)
		}
	}
	return &memory, nil
}

// ReplaceMemory overwrites both memory tiers atomically. Used after
// consolidation, which rewrites the short-term window.
func (r *PersonaRepository) ReplaceMemory(ctx context.Context, personaID string, memory *domain.PersonaMemory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM persona_memories WHERE persona_id = $1`, personaID); err != nil {
		return fmt.Errorf("failed to clear memory: %w", err)
	}

	insert := `
		INSERT INTO persona_memories (persona_id, kind, content, importance, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, entry := range memory.ShortTerm {
		if _, err := tx.Exec(ctx, insert, personaID, domain.MemoryShortTerm, entry.Content, entry.Importance, entry.Timestamp); err != nil {
			return fmt.Errorf("failed to write short-term memory: %w", err)
		}
	}
	for _, entry := range memory.LongTerm {
		if _, err := tx.Exec(ctx, insert, personaID, domain.MemoryLongTerm, entry.Content, entry.Importance, entry.Timestamp); err != nil {
			return fmt.Errorf("failed to write long-term memory: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit memory: %w", err)
	}
	return nil
}
