package sqlite

import (
	"context"
	"database/sql"

	"github.com/oklog/ulid/v2"

	"github.com/northmart/authkit/identity"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, email, username, first_name, last_name, password_hash, role_id`

func (r *usersRepo) FindByID(ctx context.Context, id string) (identity.User, error) {
	return r.findBy(ctx, "id", id)
}

func (r *usersRepo) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *usersRepo) FindByUsername(ctx context.Context, username string) (identity.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *usersRepo) findBy(ctx context.Context, column, value string) (identity.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	var u identity.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &u.RoleID); err != nil {
		return identity.User{}, mapNotFound(err)
	}

	role, err := loadRole(ctx, r.db, "id", u.RoleID)
	if err != nil && err != identity.ErrNotFound {
		return identity.User{}, err
	}
	if err == nil {
		u.Role = &role
	}

	return u, nil
}

func (r *usersRepo) Create(ctx context.Context, u identity.User) (identity.User, error) {
	if u.ID == "" {
		u.ID = ulid.Make().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, first_name, last_name, password_hash, role_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.RoleID)
	if err != nil {
		return identity.User{}, mapConflict(err)
	}

	return r.FindByID(ctx, u.ID)
}
