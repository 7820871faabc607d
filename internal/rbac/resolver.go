package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/repo"
)

// ErrScopedCheckUnsupported is returned for resource-scoped permission
// checks. The scoped lookup is a contract-level extension point without
// a concrete scoping model yet; rejecting explicitly beats silently
// denying.
var ErrScopedCheckUnsupported = errors.New("scoped permission checks are not supported")

// Scope names a resource context for a permission check.
type Scope struct {
	ContentType string
	ID          int64
}

// Resolver evaluates whether a principal may perform a named action
// against the role graph.
type Resolver struct {
	rbac repo.RBACRepo
}

// NewResolver creates a new permission resolver.
func NewResolver(rbac repo.RBACRepo) *Resolver {
	return &Resolver{rbac: rbac}
}

// Check reports whether the user may perform the action. Superusers
// pass unconditionally. The codename is lazily materialized so an
// unknown action yields a permission with no roles attached, hence
// false, never an error. Disabled roles grant nothing.
func (r *Resolver) Check(ctx context.Context, user model.User, codename string, scope *Scope) (bool, error) {
	if user.IsSuperuser {
		return true, nil
	}

	if scope != nil {
		return false, ErrScopedCheckUnsupported
	}

	perm, err := r.rbac.GetOrCreatePermission(ctx, codename, "")
	if err != nil {
		return false, fmt.Errorf("materialize permission: %w", err)
	}

	roles, err := r.rbac.ListUserRoles(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("load user roles: %w", err)
	}

	for _, role := range roles {
		if !role.Enabled {
			continue
		}
		has, err := r.rbac.RoleHasPermission(ctx, role.ID, perm.Codename)
		if err != nil {
			return false, fmt.Errorf("check role %q: %w", role.Codename, err)
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}
