package service

import (
	"context"
	"time"

	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
	"github.com/and161185/formsync/internal/validate"
)

// Sync types reported by product listings.
const (
	SyncFull        = "full"
	SyncIncremental = "incremental"
)

// ProductList is a product listing page.
type ProductList struct {
	Products   []model.Product  `json:"products"`
	Pagination model.Pagination `json:"pagination"`
	SyncType   string           `json:"syncType"`
	SyncTime   string           `json:"syncTime"`
}

// ProductService provides product CRUD with live-update events.
type ProductService interface {
	Create(ctx context.Context, in model.ProductInput) (*model.Product, error)
	Get(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, lastSync *time.Time, page model.Page) (ProductList, error)
	Update(ctx context.Context, in model.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ProductServiceImpl struct {
	repo   repository.ProductRepository
	v      *validate.Validator
	notify Notifier
	now    func() time.Time
}

// NewProductService constructs ProductService. A nil notifier drops events.
func NewProductService(repo repository.ProductRepository, v *validate.Validator, n Notifier) *ProductServiceImpl {
	return &ProductServiceImpl{repo: repo, v: v, notify: orNop(n), now: time.Now}
}

// Create validates and stores a product, then emits product.created.
func (s *ProductServiceImpl) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.notify.Emit(ctx, EventProductCreated, p)
	return p, nil
}

// Get returns one product.
func (s *ProductServiceImpl) Get(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of products. With lastSync only rows changed after it are listed.
func (s *ProductServiceImpl) List(ctx context.Context, lastSync *time.Time, page model.Page) (ProductList, error) {
	now := s.now()
	items, total, err := s.repo.List(ctx, lastSync, page)
	if err != nil {
		return ProductList{}, err
	}
	st := SyncFull
	if lastSync != nil {
		st = SyncIncremental
	}
	return ProductList{
		Products:   items,
		Pagination: model.NewPagination(page, total),
		SyncType:   st,
		SyncTime:   syncTime(now),
	}, nil
}

// Update overwrites a product, then emits product.updated.
func (s *ProductServiceImpl) Update(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, in)
	if err != nil {
		return nil, err
	}
	s.notify.Emit(ctx, EventProductUpdated, p)
	return p, nil
}

// Delete removes a product, then emits product.deleted with its id.
func (s *ProductServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify.Emit(ctx, EventProductDeleted, map[string]int64{"id": id})
	return nil
}
