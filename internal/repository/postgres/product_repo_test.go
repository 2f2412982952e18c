package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

var productColumns = []string{"id", "name", "price", "quantity", "created_at", "updated_at"}

func TestProductRepo_ChangedSince(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProductRepo(db)
	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := since.Add(time.Minute)

	mock.ExpectQuery(`FROM products WHERE updated_at > \$1 OR created_at > \$1 ORDER BY updated_at DESC`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(int64(2), "tea", 3.5, int64(10), since.Add(-time.Hour), later).
			AddRow(int64(1), "milk", 1.25, int64(4), later, later))
	out, err := r.ChangedSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "tea", out[0].Name)
}

func TestProductRepo_Create_ReturnsServerID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProductRepo(db)
	now := time.Now()
	in := model.ProductInput{ID: -1, Name: "tea", Price: 3.5, Quantity: 10}

	mock.ExpectQuery(`INSERT INTO products \(name, price, quantity\) VALUES \(\$1, \$2, \$3\) RETURNING`).
		WithArgs("tea", 3.5, int64(10)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(41), "tea", 3.5, int64(10), now, now))
	p, err := r.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, int64(41), p.ID)
}

func TestProductRepo_Update_NoRow(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProductRepo(db)
	in := model.ProductInput{ID: 99, Name: "tea", Price: 1, Quantity: 1}

	mock.ExpectQuery(`UPDATE products SET name=\$2, price=\$3, quantity=\$4, updated_at=now\(\) WHERE id=\$1 RETURNING`).
		WithArgs(int64(99), "tea", 1.0, int64(1)).
		WillReturnError(pgx.ErrNoRows)
	_, err := r.Update(context.Background(), in)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProductRepo_List_WithSince(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewProductRepo(db)
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE updated_at > \$1 OR created_at > \$1`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC OFFSET \$2 LIMIT \$3`).
		WithArgs(since, 20, 20).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(int64(1), "milk", 1.0, int64(1), now, now))
	out, total, err := r.List(context.Background(), &since, model.Page{Page: 2, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 21, total)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
