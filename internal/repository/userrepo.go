// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/formsync/internal/model"
)

// UserRepository provides CRUD access for users and their credentials.
type UserRepository interface {
	// Create inserts a new user and returns the stored row.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	// GetByID loads a user by ID, credentials included.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByLogin loads a user whose username or email equals login, credentials included.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	// List returns a page of users (newest first, credentials included) and the total count.
	List(ctx context.Context, page model.Page) ([]model.User, int, error)
	// Update stores profile fields, and both credentials when withCredentials is set.
	Update(ctx context.Context, u *model.User, withCredentials bool) (*model.User, error)
	// UpdateOfflineDigest replaces the offline digest of a user.
	UpdateOfflineDigest(ctx context.Context, id int64, digest string) error
	// Delete removes a user.
	Delete(ctx context.Context, id int64) error
	// CreatedSince lists users created strictly after since, newest first.
	CreatedSince(ctx context.Context, since time.Time) ([]model.SyncUser, error)
}

// RoleRepository provides read access to roles.
type RoleRepository interface {
	// ListActive returns active roles ordered by name.
	ListActive(ctx context.Context) ([]model.Role, error)
	// GetByName loads an active role by name.
	GetByName(ctx context.Context, name string) (*model.Role, error)
}
