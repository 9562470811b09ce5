package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyabroad-api/internal/models"
	"github.com/noah-isme/studyabroad-api/pkg/database"
)

const roleColumns = `id, name, description, is_system, created_at, updated_at`

// RoleRepository persists roles and their permission grants.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns every role ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM roles ORDER BY name ASC`, roleColumns)
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// FindByID returns a role by identifier.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM roles WHERE id = $1`, roleColumns)
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

// FindByName returns a role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name models.UserRole) (*models.Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM roles WHERE name = $1`, roleColumns)
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role by name: %w", err)
	}
	return &role, nil
}

// Create inserts a role.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now
	const query = `INSERT INTO roles (id, name, description, is_system, created_at, updated_at) VALUES (:id, :name, :description, :is_system, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// Update renames a role and changes its description. Users follow the rename
// through the foreign key, and their refresh tokens are revoked.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	role.UpdatedAt = time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var current models.UserRole
		if err := tx.GetContext(ctx, &current, `SELECT name FROM roles WHERE id = $1 FOR UPDATE`, role.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return fmt.Errorf("lock role: %w", err)
		}
		const query = `UPDATE roles SET name = $2, description = $3, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, role.ID, role.Name, role.Description, role.UpdatedAt); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		if current == role.Name {
			return nil
		}
		// Access tokens carry the role name; holders must sign in again to get the new one.
		const revoke = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2
			WHERE revoked = FALSE AND user_id IN (SELECT id FROM users WHERE role = $1)`
		if _, err := tx.ExecContext(ctx, revoke, role.Name, role.UpdatedAt); err != nil {
			return fmt.Errorf("revoke sessions of renamed role: %w", err)
		}
		return nil
	})
}

// Delete removes a role and its grants.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("delete role permissions: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// CountUsers returns how many users hold the role.
func (r *RoleRepository) CountUsers(ctx context.Context, name models.UserRole) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE role = $1`, name); err != nil {
		return 0, fmt.Errorf("count role users: %w", err)
	}
	return total, nil
}

// ListPermissions returns the full permission catalog.
func (r *RoleRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	const query = `SELECT id, module, action FROM permissions ORDER BY module, action`
	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// PermissionsForRole returns the permissions granted to a role name.
func (r *RoleRepository) PermissionsForRole(ctx context.Context, name models.UserRole) ([]models.Permission, error) {
	const query = `SELECT p.id, p.module, p.action FROM permissions p JOIN role_permissions rp ON rp.permission_id = p.id JOIN roles r ON r.id = rp.role_id WHERE r.name = $1 ORDER BY p.module, p.action`
	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms, query, name); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return perms, nil
}

// ReplacePermissions swaps the role's grants for the given permission ids.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		for _, pid := range permissionIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, pid); err != nil {
				return fmt.Errorf("grant permission %s: %w", pid, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE roles SET updated_at = $2 WHERE id = $1`, roleID, time.Now().UTC()); err != nil {
			return fmt.Errorf("touch role: %w", err)
		}
		return nil
	})
}
