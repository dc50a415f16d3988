// Package identity defines the relational records the engine reads — users,
// roles, and permissions — and the repository interfaces the engine consumes.
// The engine never writes user rows outside of registration and never reads
// permissions from here on the hot path; resolved snapshots live in the
// session store.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("identity: not found")
	// ErrConflict is returned by Create when email or username is taken.
	ErrConflict = errors.New("identity: already exists")
)

// Permission is a flat resource:action grant, e.g. "products:create".
// Name is unique and always equals Resource + ":" + Action.
type Permission struct {
	ID          string
	Name        string
	Description string
	Resource    string
	Action      string
	Active      bool
}

// Role is a named permission set. System roles are seeded at process start
// and are not deletable.
type Role struct {
	ID          string
	Name        string
	Description string
	IsSystem    bool
	Permissions []Permission
}

// PermissionNames returns the role's grants as resource:action strings,
// the shape embedded into session snapshots.
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Resource+":"+p.Action)
	}
	return names
}

// User is an identity record with its role reference. Role is populated
// (including permissions) by every lookup.
type User struct {
	ID           string
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	RoleID       string
	Role         *Role
}

// Users is the identity lookup capability consumed by the engine.
type Users interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)

	// Create inserts a new user. The store assigns the ID when empty and
	// fails with ErrConflict on a duplicate email or username.
	Create(ctx context.Context, u User) (User, error)
}

// Roles is the role read/write capability used by the rbac resolver and the
// engine's role lookups.
type Roles interface {
	FindByName(ctx context.Context, name string) (Role, error)
	FindByUser(ctx context.Context, userID string) (Role, error)
	List(ctx context.Context) ([]Role, error)

	Create(ctx context.Context, r Role) (Role, error)

	// SetPermissions replaces the role's permission links. Re-applying the
	// same set is a no-op.
	SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error
}

// Permissions is the permission catalog capability used by the rbac resolver.
type Permissions interface {
	FindByName(ctx context.Context, name string) (Permission, error)
	List(ctx context.Context) ([]Permission, error)

	Create(ctx context.Context, p Permission) (Permission, error)
}

// Store bundles the three repositories behind one handle, the shape the
// engine builder accepts.
type Store interface {
	Users() Users
	Roles() Roles
	Permissions() Permissions
}
