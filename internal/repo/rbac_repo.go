package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/netscore/server/internal/model"
)

// RBACRepo defines the interface for role/permission repository operations
type RBACRepo interface {
	GetOrCreatePermission(ctx context.Context, codename, name string) (model.Permission, error)
	CreateRole(ctx context.Context, name, codename, description string) (model.Role, error)
	SetRoleEnabled(ctx context.Context, roleID int64, enabled bool) error
	AddPermissionToRole(ctx context.Context, roleID, permissionID int64) error
	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
	ListUserRoles(ctx context.Context, userID int64) ([]model.Role, error)
	RoleHasPermission(ctx context.Context, roleID int64, codename string) (bool, error)
}

type rbacRepo struct {
	db *sql.DB
}

// NewRBACRepo creates a new RBACRepo instance
func NewRBACRepo(db *sql.DB) RBACRepo {
	return &rbacRepo{db: db}
}

const roleColumns = `id, name, codename, description, project_content_type, project_id, enabled`

// GetOrCreatePermission lazily materializes a permission. The insert is
// idempotent on the codename unique constraint, so concurrent callers
// referencing the same unknown action converge on one row.
func (r *rbacRepo) GetOrCreatePermission(ctx context.Context, codename, name string) (model.Permission, error) {
	codename = strings.ToLower(codename)
	if name == "" {
		name = codename
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO permissions (codename, name)
		VALUES ($1, $2)
		ON CONFLICT (codename) DO NOTHING
	`, codename, name)
	if err != nil {
		return model.Permission{}, fmt.Errorf("insert permission: %w", err)
	}

	var p model.Permission
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, codename, description FROM permissions WHERE codename = $1
	`, codename).Scan(&p.ID, &p.Name, &p.Codename, &p.Description)
	if err != nil {
		return model.Permission{}, fmt.Errorf("query permission: %w", err)
	}
	return p, nil
}

// CreateRole inserts an enabled, globally scoped role.
func (r *rbacRepo) CreateRole(ctx context.Context, name, codename, description string) (model.Role, error) {
	var role model.Role
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, codename, description)
		VALUES ($1, $2, $3)
		RETURNING `+roleColumns,
		name, strings.ToLower(codename), description).Scan(
		&role.ID,
		&role.Name,
		&role.Codename,
		&role.Description,
		&role.ProjectContentType,
		&role.ProjectID,
		&role.Enabled,
	)
	if err != nil {
		return model.Role{}, fmt.Errorf("insert role: %w", err)
	}
	return role, nil
}

// SetRoleEnabled toggles whether the role grants its permissions.
func (r *rbacRepo) SetRoleEnabled(ctx context.Context, roleID int64, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE roles SET enabled = $2 WHERE id = $1`, roleID, enabled)
	if err != nil {
		return fmt.Errorf("set role enabled: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("role: %w", ErrNotFound)
	}
	return nil
}

// AddPermissionToRole links a permission to a role, idempotently.
func (r *rbacRepo) AddPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("add permission to role: %w", err)
	}
	return nil
}

// AssignRoleToUser grants a global role assignment, idempotently.
func (r *rbacRepo) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("assign role to user: %w", err)
	}
	return nil
}

// ListUserRoles returns all roles assigned to the user, including
// disabled ones; the resolver decides what a disabled role grants.
func (r *rbacRepo) ListUserRoles(ctx context.Context, userID int64) ([]model.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.codename, r.description,
		       r.project_content_type, r.project_id, r.enabled
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Codename,
			&role.Description,
			&role.ProjectContentType,
			&role.ProjectID,
			&role.Enabled,
		); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// RoleHasPermission tests role membership of a permission codename,
// case-insensitively.
func (r *rbacRepo) RoleHasPermission(ctx context.Context, roleID int64, codename string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM role_permissions rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1 AND p.codename = $2
		)
	`, roleID, strings.ToLower(codename)).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("role has permission: %w", err)
	}
	return exists, nil
}
