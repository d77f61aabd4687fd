package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chatsim/chatsim/internal/domain"
)

// GroupRepository implements domain.GroupRepository on the embedded store
type GroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *DB) *GroupRepository {
	return &GroupRepository{db: db.Conn}
}

// Create inserts a new group with its initial persona membership
func (r *GroupRepository) Create(ctx context.Context, group *domain.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.IsActive, group.CreatedAt, group.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, personaID := range group.PersonaIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_personas (group_id, persona_id) VALUES (?, ?)`,
			group.ID, personaID,
		); err != nil {
			return fmt.Errorf("failed to add group persona: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group: %w", err)
	}
	return nil
}

// Get retrieves a group with its persona ids
func (r *GroupRepository) Get(ctx context.Context, id string) (*domain.Group, error) {
	var g domain.Group
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at FROM groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM groups`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

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
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET name = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		group.Name, group.Description, group.IsActive, group.UpdatedAt, group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return checkAffected(res)
}

// Delete removes a group and its membership rows
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return checkAffected(res)
}

// AddPersona adds a persona to a group. Already-member is a no-op.
func (r *GroupRepository) AddPersona(ctx context.Context, groupID, personaID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_personas (group_id, persona_id) VALUES (?, ?)`,
		groupID, personaID,
	)
	if err != nil {
		return fmt.Errorf("failed to add persona to group: %w", err)
	}
	return nil
}

// RemovePersona removes a persona from a group
func (r *GroupRepository) RemovePersona(ctx context.Context, groupID, personaID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_personas WHERE group_id = ? AND persona_id = ?`,
		groupID, personaID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove persona from group: %w", err)
	}
	return checkAffected(res)
}

func (r *GroupRepository) personaIDs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT persona_id FROM group_personas WHERE group_id = ? ORDER BY persona_id`, groupID,
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
	return ids, rows.Err()
}
