package sqlite

import (
	"context"
	"database/sql"

	"github.com/oklog/ulid/v2"

	"github.com/northmart/authkit/identity"
)

type permissionsRepo struct {
	db *sql.DB
}

func (r *permissionsRepo) FindByName(ctx context.Context, name string) (identity.Permission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, resource, action, active FROM permissions WHERE name = ?`, name)

	var p identity.Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Resource, &p.Action, &p.Active); err != nil {
		return identity.Permission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *permissionsRepo) List(ctx context.Context) ([]identity.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, resource, action, active FROM permissions ORDER BY name`)
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

func (r *permissionsRepo) Create(ctx context.Context, p identity.Permission) (identity.Permission, error) {
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (id, name, description, resource, action, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Resource, p.Action, p.Active)
	if err != nil {
		return identity.Permission{}, mapConflict(err)
	}

	return p, nil
}
