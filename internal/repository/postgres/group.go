package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupRepository implements domain.GroupRepository
type GroupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create inserts a new group with its initial persona membership
func (r *GroupRepository) Create(ctx context.Context, group *domain.Group) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO groups (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query,
		group.ID,
		group.Name,
		group.Description,
		group.IsActive,
		group.CreatedAt,
		group.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, personaID := range group.PersonaIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_personas (group_id, persona_id) VALUES ($1, $2)`,
			group.ID, personaID,
		); err != nil {
			return fmt.Errorf("failed to add group persona: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit group: %w", err)
	}
	return nil
}

// Get retrieves a group with its persona ids
func (r *GroupRepository) Get(ctx context.Context, id string) (*domain.Group, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM groups
		WHERE id = $1
	`
	var g domain.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.IsActive,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	g.PersonaIDs, err = r.personaIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// List retrieves groups, optionally only active ones
func (r *GroupRepository) List(ctx context.Context, activeOnly bool) ([]domain.Group, error) {
	query := `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM groups
	`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()

	for i := range groups {
		groups[i].PersonaIDs, err = r.personaIDs(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// Update persists group field changes
func (r *GroupRepository) Update(ctx context.Context, group *domain.Group) error {
	query := `
		UPDATE groups
		SET name = $1, description = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`
	tag, err := r.pool.Exec(ctx, query,
		group.Name,
		group.Description,
		group.IsActive,
		group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a group and its membership rows
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddPersona adds a persona to a group. Already-member is a no-op.
func (r *GroupRepository) AddPersona(ctx context.Context, groupID, personaID string) error {
	query := `
		INSERT INTO group_personas (group_id, persona_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, groupID, personaID); err != nil {
		return fmt.Errorf("failed to add persona to group: %w", err)
	}
	return nil
}

// RemovePersona removes a persona from a group
func (r *GroupRepository) RemovePersona(ctx context.Context, groupID, personaID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM group_personas WHERE group_id = $1 AND persona_id = $2`,
		groupID, personaID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove persona from group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GroupRepository) personaIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT persona_id FROM group_personas WHERE group_id = $1 ORDER BY persona_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group personas: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group persona: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
