package repository

import (
	"context"
	"time"

	"github.com/and161185/formsync/internal/model"
)

// ProductRepository provides access to the synchronized product catalog.
type ProductRepository interface {
	// Create inserts a product and returns the stored row with its server id.
	Create(ctx context.Context, in model.ProductInput) (*model.Product, error)
	// Get loads a product by ID.
	Get(ctx context.Context, id int64) (*model.Product, error)
	// List returns a page of products (newest first), optionally only rows changed after since.
	List(ctx context.Context, since *time.Time, page model.Page) ([]model.Product, int, error)
	// Update overwrites a product; ErrNotFound when no row matches in.ID.
	Update(ctx context.Context, in model.ProductInput) (*model.Product, error)
	// Delete removes a product.
	Delete(ctx context.Context, id int64) error

	// ChangedSince returns rows with updated_at or created_at strictly after since, newest update first.
	ChangedSince(ctx context.Context, since time.Time) ([]model.Product, error)
}
