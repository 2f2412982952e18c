package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

var userColumns = []string{"id", "username", "email", "role_id", "name", "password_hash", "offline_digest", "created_at", "updated_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now()
	u := &model.User{Username: "ana", Email: "ana@x.io", PasswordHash: "h", OfflineDigest: "d", RoleID: ptr(int64(1))}

	mock.ExpectQuery(`INSERT INTO users \(username, email, password_hash, offline_digest, role_id\)`).
		WithArgs(u.Username, u.Email, u.PasswordHash, u.OfflineDigest, u.RoleID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectQuery(`FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id=\$1`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(9), "ana", "ana@x.io", ptr(int64(1)), model.RoleAdministrator, "h", "d", now, now))
	got, err := r.Create(ctx, u)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.ID)
	require.Equal(t, model.RoleAdministrator, got.RoleName)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.Username, u.Email, u.PasswordHash, u.OfflineDigest, u.RoleID).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	_, err = r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByLogin(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(`WHERE u.username=\$1 OR u.email=\$1`).
		WithArgs("ana@x.io").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(3), "ana", "ana@x.io", (*int64)(nil), "", "h", "d", now, now))
	u, err := r.GetByLogin(ctx, "ana@x.io")
	require.NoError(t, err)
	require.Equal(t, "ana", u.Username)
	require.Nil(t, u.RoleID)

	mock.ExpectQuery(`WHERE u.username=\$1 OR u.email=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByLogin(ctx, "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_Update_WithAndWithoutCredentials(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now()
	u := &model.User{ID: 3, Username: "ana", Email: "ana@x.io", PasswordHash: "h2", OfflineDigest: "d2"}

	mock.ExpectExec(`UPDATE users SET username=\$2, email=\$3, role_id=\$4, password_hash=\$5, offline_digest=\$6`).
		WithArgs(u.ID, u.Username, u.Email, u.RoleID, "h2", "d2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`WHERE u.id=\$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(int64(3), "ana", "ana@x.io", (*int64)(nil), "", "h2", "d2", now, now))
	got, err := r.Update(ctx, u, true)
	require.NoError(t, err)
	require.Equal(t, "d2", got.OfflineDigest)

	mock.ExpectExec(`UPDATE users SET username=\$2, email=\$3, role_id=\$4, updated_at=now\(\)`).
		WithArgs(u.ID, u.Username, u.Email, u.RoleID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	_, err = r.Update(ctx, u, false)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreatedSince(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, username, email, created_at\s+FROM users\s+WHERE created_at > \$1`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "created_at"}).
			AddRow(int64(4), "new", "new@x.io", since.Add(time.Hour)))
	out, err := r.CreatedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "new", out[0].Username)
}

func TestUserRepo_DeleteMissing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectExec(`DELETE FROM users WHERE id=\$1`).
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(context.Background(), 8), errs.ErrNotFound)
}

func TestRoleRepo_ListActive(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewRoleRepo(db)

	mock.ExpectQuery(`SELECT id, name, description, active FROM roles WHERE active ORDER BY name`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "active"}).
			AddRow(int64(1), model.RoleAdministrator, "", true).
			AddRow(int64(2), model.RoleLocalManager, "", true))
	roles, err := r.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 2)
}
