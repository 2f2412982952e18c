package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `u.id, u.username, u.email, u.role_id, COALESCE(r.name, ''), u.password_hash, u.offline_digest, u.created_at, u.updated_at`

const userFrom = `FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.RoleID, &u.RoleName,
		&u.PasswordHash, &u.OfflineDigest, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row and re-reads it with its role name.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
INSERT INTO users (username, email, password_hash, offline_digest, role_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := r.db.Pool.QueryRow(ctx, q, u.Username, u.Email, u.PasswordHash, u.OfflineDigest, u.RoleID).Scan(&id)
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	q := `SELECT ` + userCols + ` ` + userFrom + ` WHERE u.id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByLogin selects a user by username or email.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	q := `SELECT ` + userCols + ` ` + userFrom + ` WHERE u.username=$1 OR u.email=$1 LIMIT 1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, login))
}

// List returns one page of users, newest first.
func (r *UserRepo) List(ctx context.Context, page model.Page) ([]model.User, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + userCols + ` ` + userFrom + ` ORDER BY u.created_at DESC, u.id DESC OFFSET $1 LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

// Update stores profile fields and, when requested, both credentials.
func (r *UserRepo) Update(ctx context.Context, u *model.User, withCredentials bool) (*model.User, error) {
	const upd = `
UPDATE users SET username=$2, email=$3, role_id=$4, updated_at=now()
WHERE id=$1`
	const updCreds = `
UPDATE users SET username=$2, email=$3, role_id=$4, password_hash=$5, offline_digest=$6, updated_at=now()
WHERE id=$1`
	var (
		err error
		n   int64
	)
	if withCredentials {
		tag, e := r.db.Pool.Exec(ctx, updCreds, u.ID, u.Username, u.Email, u.RoleID, u.PasswordHash, u.OfflineDigest)
		err, n = e, tag.RowsAffected()
	} else {
		tag, e := r.db.Pool.Exec(ctx, upd, u.ID, u.Username, u.Email, u.RoleID)
		err, n = e, tag.RowsAffected()
	}
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errs.ErrNotFound
	}
	return r.GetByID(ctx, u.ID)
}

// UpdateOfflineDigest replaces the offline digest.
func (r *UserRepo) UpdateOfflineDigest(ctx context.Context, id int64, digest string) error {
	const q = `UPDATE users SET offline_digest=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, digest)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a user row.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreatedSince lists users created after since.
func (r *UserRepo) CreatedSince(ctx context.Context, since time.Time) ([]model.SyncUser, error) {
	const q = `
SELECT id, username, email, created_at
FROM users
WHERE created_at > $1
ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SyncUser{}
	for rows.Next() {
		var u model.SyncUser
		if err = rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RoleRepo implements RoleRepository using PostgreSQL.
type RoleRepo struct{ db *DB }

// NewRoleRepo constructs a role repository.
func NewRoleRepo(db *DB) *RoleRepo { return &RoleRepo{db: db} }

// ListActive returns active roles ordered by name.
func (r *RoleRepo) ListActive(ctx context.Context) ([]model.Role, error) {
	const q = `SELECT id, name, description, active FROM roles WHERE active ORDER BY name`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Role{}
	for rows.Next() {
		var ro model.Role
		if err = rows.Scan(&ro.ID, &ro.Name, &ro.Description, &ro.Active); err != nil {
			return nil, err
		}
		out = append(out, ro)
	}
	return out, rows.Err()
}

// GetByName loads an active role by name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	const q = `SELECT id, name, description, active FROM roles WHERE name=$1 AND active`
	var ro model.Role
	if err := r.db.Pool.QueryRow(ctx, q, name).Scan(&ro.ID, &ro.Name, &ro.Description, &ro.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &ro, nil
}
