// Package rbac owns the fixed role/permission catalog and the idempotent
// reconciliation pass that seeds it into the relational store at process
// start. Permission grants are flat resource:action strings; there is no
// policy language.
package rbac

// PermissionSeed describes one catalog permission. Name is always
// resource:action and unique.
type PermissionSeed struct {
	Name        string
	Description string
	Resource    string
	Action      string
}

// RoleSeed describes one catalog role and the permission names it grants.
type RoleSeed struct {
	Name        string
	Description string
	IsSystem    bool
	Permissions []string
}

// RoleUser is the default role assigned when registration does not name one.
const RoleUser = "user"

// PermissionCatalog is the complete permission seed. Adding an entry here
// and redeploying is the supported way to introduce a new permission;
// entries are never removed.
var PermissionCatalog = []PermissionSeed{
	{Name: "users:create", Description: "Create users", Resource: "users", Action: "create"},
	{Name: "users:read", Description: "Read users", Resource: "users", Action: "read"},
	{Name: "users:update", Description: "Update users", Resource: "users", Action: "update"},
	{Name: "users:delete", Description: "Delete users", Resource: "users", Action: "delete"},

	{Name: "products:create", Description: "Create products", Resource: "products", Action: "create"},
	{Name: "products:read", Description: "Read products", Resource: "products", Action: "read"},
	{Name: "products:update", Description: "Update products", Resource: "products", Action: "update"},
	{Name: "products:delete", Description: "Delete products", Resource: "products", Action: "delete"},
	{Name: "products:manage_stock", Description: "Manage product stock", Resource: "products", Action: "manage_stock"},

	{Name: "categories:create", Description: "Create categories", Resource: "categories", Action: "create"},
	{Name: "categories:read", Description: "Read categories", Resource: "categories", Action: "read"},
	{Name: "categories:update", Description: "Update categories", Resource: "categories", Action: "update"},
	{Name: "categories:delete", Description: "Delete categories", Resource: "categories", Action: "delete"},

	{Name: "roles:create", Description: "Create roles", Resource: "roles", Action: "create"},
	{Name: "roles:read", Description: "Read roles", Resource: "roles", Action: "read"},
	{Name: "roles:update", Description: "Update roles", Resource: "roles", Action: "update"},
	{Name: "roles:delete", Description: "Delete roles", Resource: "roles", Action: "delete"},

	{Name: "system:admin", Description: "Full system access", Resource: "system", Action: "admin"},
}

// RoleCatalog is the complete role seed. super_admin always receives the
// entire permission catalog; the others name their grants explicitly so a
// catalog change is a reviewable diff.
var RoleCatalog = []RoleSeed{
	{
		Name:        "super_admin",
		Description: "Super Administrator with full system access",
		IsSystem:    true,
		Permissions: allPermissionNames(),
	},
	{
		Name:        "admin",
		Description: "Administrator with management access",
		IsSystem:    true,
		Permissions: []string{
			"users:create", "users:read", "users:update", "users:delete",
			"products:create", "products:read", "products:update", "products:delete", "products:manage_stock",
			"categories:create", "categories:read", "categories:update", "categories:delete",
			"roles:read",
		},
	},
	{
		Name:        "seller",
		Description: "Product seller with product management access",
		IsSystem:    true,
		Permissions: []string{
			"products:create", "products:read", "products:update", "products:manage_stock",
			"categories:read",
		},
	},
	{
		Name:        RoleUser,
		Description: "Regular user with basic access",
		IsSystem:    true,
		Permissions: []string{"products:read", "categories:read"},
	},
}

func allPermissionNames() []string {
	names := make([]string, 0, len(PermissionCatalog))
	for _, p := range PermissionCatalog {
		names = append(names, p.Name)
	}
	return names
}
