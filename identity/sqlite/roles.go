package sqlite

import (
	"context"
	"database/sql"

	"github.com/oklog/ulid/v2"

	"github.com/northmart/authkit/identity"
)

type rolesRepo struct {
	db *sql.DB
}

func (r *rolesRepo) FindByName(ctx context.Context, name string) (identity.Role, error) {
	return loadRole(ctx, r.db, "name", name)
}

func (r *rolesRepo) FindByUser(ctx context.Context, userID string) (identity.Role, error) {
	row := r.db.QueryRowContext(ctx, `SELECT role_id FROM users WHERE id = ?`, userID)

	var roleID string
	if err := row.Scan(&roleID); err != nil {
		return identity.Role{}, mapNotFound(err)
	}
	return loadRole(ctx, r.db, "id", roleID)
}

func (r *rolesRepo) List(ctx context.Context) ([]identity.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, is_system FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []identity.Role
	for rows.Next() {
		var role identity.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		perms, err := loadRolePermissions(ctx, r.db, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Permissions = perms
	}

	return roles, nil
}

func (r *rolesRepo) Create(ctx context.Context, role identity.Role) (identity.Role, error) {
	if role.ID == "" {
		role.ID = ulid.Make().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, is_system) VALUES (?, ?, ?, ?)`,
		role.ID, role.Name, role.Description, role.IsSystem)
	if err != nil {
		return identity.Role{}, mapConflict(err)
	}

	if len(role.Permissions) > 0 {
		ids := make([]string, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			ids = append(ids, p.ID)
		}
		if err := r.SetPermissions(ctx, role.ID, ids); err != nil {
			return identity.Role{}, err
		}
	}

	return loadRole(ctx, r.db, "id", role.ID)
}

func (r *rolesRepo) SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = ?`, roleID); err != nil {
		return err
	}
	for _, pid := range permissionIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)`,
			roleID, pid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func loadRole(ctx context.Context, db *sql.DB, column, value string) (identity.Role, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, description, is_system FROM roles WHERE `+column+` = ?`, value)

	var role identity.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem); err != nil {
		return identity.Role{}, mapNotFound(err)
	}

	perms, err := loadRolePermissions(ctx, db, role.ID)
	if err != nil {
		return identity.Role{}, err
	}
	role.Permissions = perms

	return role, nil
}

func loadRolePermissions(ctx context.Context, db *sql.DB, roleID string) ([]identity.Permission, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT p.id, p.name, p.description, p.resource, p.action, p.active
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = ?
		 ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []identity.Permission
	for rows.Next() {
		var p identity.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action, &p.Active); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
