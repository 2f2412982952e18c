package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
)

// ProductRepo implements ProductRepository using PostgreSQL.
type ProductRepo struct{ db *DB }

// NewProductRepo constructs a product repository.
func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `id, name, price::float8, quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create inserts a product; the server assigns the id.
func (r *ProductRepo) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	q := `INSERT INTO products (name, price, quantity) VALUES ($1, $2, $3) RETURNING ` + productCols
	return scanProduct(r.db.Pool.QueryRow(ctx, q, in.Name, in.Price, in.Quantity))
}

// Get selects a product by ID.
func (r *ProductRepo) Get(ctx context.Context, id int64) (*model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE id=$1`
	return scanProduct(r.db.Pool.QueryRow(ctx, q, id))
}

// List returns one page of products, newest first. A non-nil since limits the page to changed rows.
func (r *ProductRepo) List(ctx context.Context, since *time.Time, page model.Page) ([]model.Product, int, error) {
	where, args := "", []any{}
	if since != nil {
		where = ` WHERE updated_at > $1 OR created_at > $1`
		args = append(args, *since)
	}

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	q := `SELECT ` + productCols + ` FROM products` + where +
		` ORDER BY created_at DESC, id DESC OFFSET $` + itoa(n+1) + ` LIMIT $` + itoa(n+2)
	rows, err := r.db.Pool.Query(ctx, q, append(args, page.Offset(), page.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update overwrites a product and returns the stored row. No matching row yields ErrNotFound.
func (r *ProductRepo) Update(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	q := `UPDATE products SET name=$2, price=$3, quantity=$4, updated_at=now() WHERE id=$1 RETURNING ` + productCols
	return scanProduct(r.db.Pool.QueryRow(ctx, q, in.ID, in.Name, in.Price, in.Quantity))
}

// Delete removes a product.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ChangedSince returns rows created or updated strictly after since, most recently updated first.
func (r *ProductRepo) ChangedSince(ctx context.Context, since time.Time) ([]model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE updated_at > $1 OR created_at > $1 ORDER BY updated_at DESC`
	rows, err := r.db.Pool.Query(ctx, q, since)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}
