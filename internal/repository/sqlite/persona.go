package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chatsim/chatsim/internal/domain"
)

// PersonaRepository implements domain.PersonaRepository on the embedded store
type PersonaRepository struct {
	db *sql.DB
}

// NewPersonaRepository creates a new persona repository
func NewPersonaRepository(db *DB) *PersonaRepository {
	return &PersonaRepository{db: db.Conn}
}

// Create inserts a new persona
func (r *PersonaRepository) Create(ctx context.Context, persona *domain.Persona) error {
	query := `
		INSERT INTO personas (id, name, persona_type, system_prompt, description, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		persona.ID,
		persona.Name,
		string(persona.Type),
		persona.SystemPrompt,
		persona.Description,
		persona.IsActive,
		persona.CreatedAt,
		persona.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
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
		WHERE id = ?
	`
	var p domain.Persona
	err := r.db.QueryRowContext(ctx, query, id).Scan(
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
		if errors.Is(err, sql.ErrNoRows) {
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
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM personas WHERE LOWER(name) = LOWER(?)`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get persona by name: %w", err)
	}
	return r.Get(ctx, id)
}

// List retrieves personas without loading memory tiers
func (r *PersonaRepository) List(ctx context.Context, activeOnly bool) ([]domain.Persona, error) {
	query := `
		SELECT id, name, persona_type, system_prompt, description, is_active, created_at, updated_at
		FROM personas
	`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
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
	return personas, rows.Err()
}

// Count returns the total number of personas
func (r *PersonaRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM personas`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count personas: %w", err)
	}
	return count, nil
}

// Update persists persona field changes
func (r *PersonaRepository) Update(ctx context.Context, persona *domain.Persona) error {
	query := `
		UPDATE personas
		SET name = ?, persona_type = ?, system_prompt = ?, description = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		persona.Name,
		string(persona.Type),
		persona.SystemPrompt,
		persona.Description,
		persona.IsActive,
		persona.UpdatedAt,
		persona.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to update persona: %w", err)
	}
	return checkAffected(res)
}

// Delete removes a persona and, via cascade, its memories
func (r *PersonaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM personas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	return checkAffected(res)
}

// AddMemory appends one memory entry for a persona
func (r *PersonaRepository) AddMemory(ctx context.Context, personaID string, kind domain.MemoryKind, entry domain.MemoryEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO persona_memories (persona_id, kind, content, importance, created_at) VALUES (?, ?, ?, ?, ?)`,
		personaID, string(kind), entry.Content, entry.Importance, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}
	return nil
}

// GetMemory loads both memory tiers for a persona in chronological order
func (r *PersonaRepository) GetMemory(ctx context.Context, personaID string) (*domain.PersonaMemory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, content, importance, created_at FROM persona_memories WHERE persona_id = ? ORDER BY created_at, id`,
		personaID,
	)
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
	return &memory, rows.Err()
}

// ReplaceMemory overwrites both memory tiers atomically
func (r *PersonaRepository) ReplaceMemory(ctx context.Context, personaID string, memory *domain.PersonaMemory) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM persona_memories WHERE persona_id = ?`, personaID); err != nil {
		return fmt.Errorf("failed to clear memory: %w", err)
	}

	insert := `INSERT INTO persona_memories (persona_id, kind, content, importance, created_at) VALUES (?, ?, ?, ?, ?)`
	for _, entry := range memory.ShortTerm {
		if _, err := tx.ExecContext(ctx, insert, personaID, string(domain.MemoryShortTerm), entry.Content, entry.Importance, entry.Timestamp); err != nil {
			return fmt.Errorf("failed to write short-term memory: %w", err)
		}
	}
	for _, entry := range memory.LongTerm {
		if _, err := tx.ExecContext(ctx, insert, personaID, string(domain.MemoryLongTerm), entry.Content, entry.Importance, entry.Timestamp); err != nil {
			return fmt.Errorf("failed to write long-term memory: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memory: %w", err)
	}
	return nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
