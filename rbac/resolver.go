package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/northmart/authkit/identity"
)

// Resolver reconciles the seed catalog against the relational store and
// serves the role lookups used when minting sessions. It holds no cache of
// its own; reads always hit the store.
type Resolver struct {
	roles  identity.Roles
	perms  identity.Permissions
	logger *slog.Logger
}

// NewResolver returns a Resolver over the given repositories. logger may be
// nil, in which case slog.Default() is used.
func NewResolver(roles identity.Roles, perms identity.Permissions, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{roles: roles, perms: perms, logger: logger}
}

// Reconcile seeds the permission catalog and the role catalog. It is invoked
// once by the composition root at process start and is safe to re-run any
// number of times: permissions are looked up by unique name before insert,
// and each role's permission set is rewritten from the catalog even when the
// role already exists, so catalog changes propagate on redeploy.
func (r *Resolver) Reconcile(ctx context.Context) error {
	seeded, err := r.reconcilePermissions(ctx)
	if err != nil {
		return fmt.Errorf("rbac: seeding permissions: %w", err)
	}
	if err := r.reconcileRoles(ctx, seeded); err != nil {
		return fmt.Errorf("rbac: seeding roles: %w", err)
	}
	return nil
}

func (r *Resolver) reconcilePermissions(ctx context.Context) (map[string]identity.Permission, error) {
	seeded := make(map[string]identity.Permission, len(PermissionCatalog))

	for _, seed := range PermissionCatalog {
		existing, err := r.perms.FindByName(ctx, seed.Name)
		switch {
		case err == nil:
			seeded[existing.Name] = existing
			continue
		case !errors.Is(err, identity.ErrNotFound):
			return nil, err
		}

		created, err := r.perms.Create(ctx, identity.Permission{
			Name:        seed.Name,
			Description: seed.Description,
			Resource:    seed.Resource,
			Action:      seed.Action,
			Active:      true,
		})
		if err != nil {
			// A concurrent reconciler may have inserted it between the
			// lookup and the insert; re-read rather than fail.
			if errors.Is(err, identity.ErrConflict) {
				created, err = r.perms.FindByName(ctx, seed.Name)
			}
			if err != nil {
				return nil, err
			}
		}
		r.logger.Info("permission seeded", "permission", created.Name)
		seeded[created.Name] = created
	}

	return seeded, nil
}

func (r *Resolver) reconcileRoles(ctx context.Context, seeded map[string]identity.Permission) error {
	for _, seed := range RoleCatalog {
		// Intersect the declared grants against the catalog just seeded;
		// a grant naming an unknown permission is silently dropped.
		grantIDs := make([]string, 0, len(seed.Permissions))
		grants := make([]identity.Permission, 0, len(seed.Permissions))
		for _, name := range seed.Permissions {
			if p, ok := seeded[name]; ok {
				grantIDs = append(grantIDs, p.ID)
				grants = append(grants, p)
			}
		}

		existing, err := r.roles.FindByName(ctx, seed.Name)
		switch {
		case errors.Is(err, identity.ErrNotFound):
			if _, err := r.roles.Create(ctx, identity.Role{
				Name:        seed.Name,
				Description: seed.Description,
				IsSystem:    seed.IsSystem,
				Permissions: grants,
			}); err != nil && !errors.Is(err, identity.ErrConflict) {
				return err
			}
			r.logger.Info("role seeded", "role", seed.Name, "permissions", len(grantIDs))
		case err != nil:
			return err
		default:
			// Role exists: rewrite its permission set so catalog changes
			// reach existing deployments.
			if err := r.roles.SetPermissions(ctx, existing.ID, grantIDs); err != nil {
				return err
			}
		}
	}

	return nil
}

// RoleByName returns the named role with permissions loaded.
func (r *Resolver) RoleByName(ctx context.Context, name string) (identity.Role, error) {
	return r.roles.FindByName(ctx, name)
}

// UserRole returns the role attached to the given user.
func (r *Resolver) UserRole(ctx context.Context, userID string) (identity.Role, error) {
	return r.roles.FindByUser(ctx, userID)
}

// AllRoles lists every role with permissions loaded.
func (r *Resolver) AllRoles(ctx context.Context) ([]identity.Role, error) {
	return r.roles.List(ctx)
}

// AllPermissions lists the full permission catalog as stored.
func (r *Resolver) AllPermissions(ctx context.Context) ([]identity.Permission, error) {
	return r.perms.List(ctx)
}
